package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cyber-sensei/backend/internal/catalog"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/progress"
)

// completionThreshold is the knowledge probability at which a topic stops
// being offered as a new suggestion.
const completionThreshold = 0.95

// StepKind tags a next-step outcome.
type StepKind string

const (
	StepReview   StepKind = "review"
	StepNew      StepKind = "new"
	StepComplete StepKind = "complete"
)

// Step is the single next learning action recommended to a learner.
type Step struct {
	Kind         StepKind `json:"type"`
	Message      string   `json:"message"`
	TopicID      int64    `json:"topic_id,omitempty"`
	TopicName    string   `json:"topic_name,omitempty"`
	ProjectTitle string   `json:"project_title,omitempty"`
}

// SelectorConfig holds dependencies for the curriculum selector.
type SelectorConfig struct {
	Records  progress.Store
	Catalog  catalog.Store
	Learners learner.Store
	Ranker   Ranker           // defaults to OrderDifficultyRanker
	Now      func() time.Time // defaults to time.Now
}

// Selector decides the next learning action: a due review always wins over
// a new-topic suggestion; completion is the terminal outcome. Selection is
// stateless per call.
type Selector struct {
	records  progress.Store
	catalog  catalog.Store
	learners learner.Store
	ranker   Ranker
	now      func() time.Time
}

// NewSelector creates a curriculum selector.
func NewSelector(cfg SelectorConfig) *Selector {
	ranker := cfg.Ranker
	if ranker == nil {
		ranker = OrderDifficultyRanker{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Selector{
		records:  cfg.Records,
		catalog:  cfg.Catalog,
		learners: cfg.Learners,
		ranker:   ranker,
		now:      now,
	}
}

// NextStep returns the learner's next action. Unknown learners surface as
// ErrNotFound, which the boundary renders as the error outcome.
func (s *Selector) NextStep(ctx context.Context, learnerID int64) (Step, error) {
	if learnerID <= 0 {
		return Step{}, fmt.Errorf("%w: learner id %d", ErrInvalidArgument, learnerID)
	}
	if _, err := s.learners.ByID(ctx, learnerID); err != nil {
		if errors.Is(err, learner.ErrNotFound) {
			return Step{}, fmt.Errorf("%w: learner %d", ErrNotFound, learnerID)
		}
		return Step{}, fmt.Errorf("resolve learner: %w", err)
	}

	records, err := s.records.ForLearner(ctx, learnerID)
	if err != nil {
		return Step{}, fmt.Errorf("load records: %w", err)
	}

	now := s.now()
	if due, ok := earliestDue(records, now); ok {
		return s.reviewStep(ctx, due)
	}

	candidates, err := s.newTopicCandidates(ctx, records)
	if err != nil {
		return Step{}, err
	}
	if len(candidates) == 0 {
		return Step{
			Kind:    StepComplete,
			Message: "You're all caught up! Great work.",
		}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return s.ranker.Compare(candidates[i], candidates[j]) < 0
	})
	return newTopicStep(candidates[0]), nil
}

// earliestDue picks the due record with the earliest scheduled review,
// breaking exact timestamp ties on the lowest topic id.
func earliestDue(records []progress.MasteryRecord, now time.Time) (progress.MasteryRecord, bool) {
	var best progress.MasteryRecord
	found := false
	for _, rec := range records {
		if !rec.DueForReview(now) {
			continue
		}
		if !found || rec.NextReviewAt.Before(*best.NextReviewAt) ||
			(rec.NextReviewAt.Equal(*best.NextReviewAt) && rec.TopicID < best.TopicID) {
			best = rec
			found = true
		}
	}
	return best, found
}

func (s *Selector) reviewStep(ctx context.Context, rec progress.MasteryRecord) (Step, error) {
	name := fmt.Sprintf("Topic %d", rec.TopicID)
	if topic, err := s.catalog.Topic(ctx, rec.TopicID); err == nil {
		name = topic.Name
	}

	slog.Info("review due",
		"learner_id", rec.LearnerID,
		"topic_id", rec.TopicID,
		"next_review_at", rec.NextReviewAt,
	)
	return Step{
		Kind:      StepReview,
		Message:   fmt.Sprintf("Time for a review! Let's revisit '%s'.", name),
		TopicID:   rec.TopicID,
		TopicName: name,
	}, nil
}

// newTopicCandidates returns catalog topics the learner has not yet
// effectively completed.
func (s *Selector) newTopicCandidates(ctx context.Context, records []progress.MasteryRecord) ([]catalog.Topic, error) {
	completed := make(map[int64]bool, len(records))
	for _, rec := range records {
		if rec.Knowledge >= completionThreshold {
			completed[rec.TopicID] = true
		}
	}

	topics, err := s.catalog.AllTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	candidates := topics[:0:0]
	for _, t := range topics {
		if !completed[t.ID] {
			candidates = append(candidates, t)
		}
	}
	return candidates, nil
}

func newTopicStep(t catalog.Topic) Step {
	step := Step{
		Kind:      StepNew,
		Message:   fmt.Sprintf("Recommended next topic: '%s' (Difficulty: %s).", t.Name, t.Difficulty),
		TopicID:   t.ID,
		TopicName: t.Name,
	}
	if len(t.Projects) > 0 {
		step.ProjectTitle = t.Projects[0].Title
	}
	return step
}
