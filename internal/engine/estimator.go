package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyber-sensei/backend/internal/catalog"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/progress"
)

// Review intervals per mastery band.
const (
	reviewMastered   = 7 * 24 * time.Hour
	reviewInProgress = 2 * 24 * time.Hour
	reviewNotStarted = 24 * time.Hour
)

// Mastery band thresholds.
const (
	masteredThreshold   = 0.9
	inProgressThreshold = 0.5
)

// EstimatorConfig holds dependencies for the mastery estimator.
type EstimatorConfig struct {
	Records  progress.Store
	Catalog  catalog.Store
	Learners learner.Store
	Now      func() time.Time // defaults to time.Now
}

// Estimator applies Bayesian Knowledge Tracing updates to mastery records
// and derives the status band and next review time from the new estimate.
type Estimator struct {
	records  progress.Store
	catalog  catalog.Store
	learners learner.Store
	now      func() time.Time
}

// NewEstimator creates a mastery estimator.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Estimator{
		records:  cfg.Records,
		catalog:  cfg.Catalog,
		learners: cfg.Learners,
		now:      now,
	}
}

// UpdateMastery folds one correctness observation into the learner's record
// for the topic and returns the new knowledge probability. The record is
// created lazily with default BKT parameters; the whole update persists
// atomically or not at all.
func (e *Estimator) UpdateMastery(ctx context.Context, learnerID, topicID int64, isCorrect bool) (float64, error) {
	if learnerID <= 0 {
		return 0, fmt.Errorf("%w: learner id %d", ErrInvalidArgument, learnerID)
	}
	if topicID <= 0 {
		return 0, fmt.Errorf("%w: topic id %d", ErrInvalidArgument, topicID)
	}

	now := e.now()
	rec, err := e.records.Update(ctx, learnerID, topicID, func(r *progress.MasteryRecord) error {
		posterior := bktPosterior(*r, isCorrect)
		r.Knowledge = clamp01(posterior + (1-posterior)*r.Learn)

		r.TotalAttempts++
		if isCorrect {
			r.CorrectAttempts++
		}

		status, interval := reviewPolicy(r.Knowledge)
		next := now.Add(interval)
		r.Status = status
		r.NextReviewAt = &next
		r.LastAccessedAt = now
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update mastery: %w", err)
	}

	slog.Info("mastery updated",
		"learner_id", learnerID,
		"topic_id", topicID,
		"correct", isCorrect,
		"knowledge", rec.Knowledge,
		"status", rec.Status,
	)
	return rec.Knowledge, nil
}

// MarkComplete forces the learner's record for the topic to mastered with
// probability 1.0 and schedules the next review a week out. Attempt
// counters are untouched: completion is a declaration, not an observation.
func (e *Estimator) MarkComplete(ctx context.Context, learnerID, topicID int64) (catalog.Topic, error) {
	if learnerID <= 0 {
		return catalog.Topic{}, fmt.Errorf("%w: learner id %d", ErrInvalidArgument, learnerID)
	}
	if topicID <= 0 {
		return catalog.Topic{}, fmt.Errorf("%w: topic id %d", ErrInvalidArgument, topicID)
	}

	topic, err := e.catalog.Topic(ctx, topicID)
	if err != nil {
		if errors.Is(err, catalog.ErrTopicNotFound) {
			return catalog.Topic{}, fmt.Errorf("%w: topic %d", ErrNotFound, topicID)
		}
		return catalog.Topic{}, fmt.Errorf("resolve topic: %w", err)
	}

	now := e.now()
	_, err = e.records.Update(ctx, learnerID, topicID, func(r *progress.MasteryRecord) error {
		next := now.Add(reviewMastered)
		r.Knowledge = 1.0
		r.Status = progress.StatusMastered
		r.NextReviewAt = &next
		r.LastAccessedAt = now
		return nil
	})
	if err != nil {
		return catalog.Topic{}, fmt.Errorf("mark complete: %w", err)
	}

	slog.Info("topic marked complete", "learner_id", learnerID, "topic_id", topicID)
	return topic, nil
}

// Dashboard aggregates all of a learner's mastery records. Read-only.
// TotalTopics is the true tracked count, zero included; only the progress
// percentage guards its denominator.
type Dashboard struct {
	TotalTopics     int            `json:"total"`
	Mastered        int            `json:"mastered"`
	ProgressPercent float64        `json:"progress_percentage"`
	Topics          []TopicMastery `json:"topics"`
}

// TopicMastery is one per-topic row of the dashboard breakdown.
type TopicMastery struct {
	TopicID int64           `json:"topic_id"`
	Name    string          `json:"name"`
	Mastery string          `json:"mastery"` // rounded percentage, e.g. "67%"
	Status  progress.Status `json:"status"`
}

// Dashboard builds the learner's aggregate mastery view.
func (e *Estimator) Dashboard(ctx context.Context, learnerID int64) (Dashboard, error) {
	if learnerID <= 0 {
		return Dashboard{}, fmt.Errorf("%w: learner id %d", ErrInvalidArgument, learnerID)
	}
	if _, err := e.learners.ByID(ctx, learnerID); err != nil {
		if errors.Is(err, learner.ErrNotFound) {
			return Dashboard{}, fmt.Errorf("%w: learner %d", ErrNotFound, learnerID)
		}
		return Dashboard{}, fmt.Errorf("resolve learner: %w", err)
	}

	records, err := e.records.ForLearner(ctx, learnerID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load records: %w", err)
	}

	d := Dashboard{TotalTopics: len(records), Topics: make([]TopicMastery, 0, len(records))}
	for _, rec := range records {
		if rec.Status == progress.StatusMastered {
			d.Mastered++
		}

		name := fmt.Sprintf("Topic %d", rec.TopicID)
		if topic, err := e.catalog.Topic(ctx, rec.TopicID); err == nil {
			name = topic.Name
		}
		d.Topics = append(d.Topics, TopicMastery{
			TopicID: rec.TopicID,
			Name:    name,
			Mastery: fmt.Sprintf("%.0f%%", rec.Knowledge*100),
			Status:  rec.Status,
		})
	}

	denom := d.TotalTopics
	if denom == 0 {
		denom = 1
	}
	d.ProgressPercent = float64(d.Mastered) / float64(denom) * 100
	return d, nil
}

// bktPosterior computes the post-observation knowledge estimate from the
// record's current state and parameters, before the learning transition.
func bktPosterior(r progress.MasteryRecord, isCorrect bool) float64 {
	p, s, g := r.Knowledge, r.Slip, r.Guess

	if isCorrect {
		observed := p*(1-s) + (1-p)*g
		if observed <= 0 {
			return p
		}
		return p * (1 - s) / observed
	}

	observed := p*s + (1-p)*(1-g)
	if observed <= 0 {
		return p
	}
	return p * s / observed
}

// reviewPolicy maps a knowledge probability to its status band and the
// spaced-repetition interval until the next review.
func reviewPolicy(p float64) (progress.Status, time.Duration) {
	switch {
	case p >= masteredThreshold:
		return progress.StatusMastered, reviewMastered
	case p >= inProgressThreshold:
		return progress.StatusInProgress, reviewInProgress
	default:
		return progress.StatusNotStarted, reviewNotStarted
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
