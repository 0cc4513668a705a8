package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cyber-sensei/backend/internal/engine"
	"github.com/cyber-sensei/backend/internal/progress"
)

func newTestSelector(t *testing.T, records *progress.MemoryStore) *engine.Selector {
	t.Helper()

	return engine.NewSelector(engine.SelectorConfig{
		Records:  records,
		Catalog:  newTestCatalog(t),
		Learners: newTestLearners(t),
		Now:      func() time.Time { return testNow },
	})
}

// seedRecord writes a mastery record with the given knowledge, status and
// review time directly, bypassing the estimator.
func seedRecord(t *testing.T, records *progress.MemoryStore, topicID int64, knowledge float64, status progress.Status, reviewAt *time.Time) {
	t.Helper()

	_, err := records.Update(t.Context(), 1, topicID, func(r *progress.MasteryRecord) error {
		r.Knowledge = knowledge
		r.Status = status
		r.NextReviewAt = reviewAt
		return nil
	})
	if err != nil {
		t.Fatalf("seeding record for topic %d: %v", topicID, err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSelector_NextStep_NewLearnerGetsFirstTopic(t *testing.T) {
	sel := newTestSelector(t, progress.NewMemoryStore())

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepNew {
		t.Fatalf("kind = %q, want %q", step.Kind, engine.StepNew)
	}
	// Topic 1 carries the only order hint, so it outranks the rest.
	if step.TopicID != 1 || step.TopicName != "Network Fundamentals" {
		t.Errorf("step = %+v, want topic 1", step)
	}
	want := "Recommended next topic: 'Network Fundamentals' (Difficulty: beginner)."
	if step.Message != want {
		t.Errorf("message = %q, want %q", step.Message, want)
	}
}

func TestSelector_NextStep_DueReviewWins(t *testing.T) {
	records := progress.NewMemoryStore()
	seedRecord(t, records, 2, 0.7, progress.StatusInProgress, timePtr(testNow.Add(-time.Hour)))
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepReview {
		t.Fatalf("kind = %q, want %q", step.Kind, engine.StepReview)
	}
	if step.TopicID != 2 || step.TopicName != "Broken Topic" {
		t.Errorf("step = %+v, want review of topic 2", step)
	}
}

func TestSelector_NextStep_EarliestDueReviewFirst(t *testing.T) {
	records := progress.NewMemoryStore()
	seedRecord(t, records, 1, 0.95, progress.StatusMastered, timePtr(testNow.Add(-time.Hour)))
	seedRecord(t, records, 2, 0.7, progress.StatusInProgress, timePtr(testNow.Add(-48*time.Hour)))
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepReview || step.TopicID != 2 {
		t.Errorf("step = %+v, want review of topic 2 (longest overdue)", step)
	}
}

func TestSelector_NextStep_ReviewTieBreaksOnTopicID(t *testing.T) {
	records := progress.NewMemoryStore()
	due := timePtr(testNow.Add(-time.Hour))
	seedRecord(t, records, 3, 0.7, progress.StatusInProgress, due)
	seedRecord(t, records, 2, 0.7, progress.StatusInProgress, due)
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.TopicID != 2 {
		t.Errorf("tie broke to topic %d, want 2", step.TopicID)
	}
}

func TestSelector_NextStep_NotStartedNeverReviews(t *testing.T) {
	records := progress.NewMemoryStore()
	seedRecord(t, records, 2, 0.3, progress.StatusNotStarted, timePtr(testNow.Add(-time.Hour)))
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepNew {
		t.Errorf("kind = %q, want %q (not_started records do not schedule reviews)", step.Kind, engine.StepNew)
	}
}

func TestSelector_NextStep_FutureReviewNotDue(t *testing.T) {
	records := progress.NewMemoryStore()
	seedRecord(t, records, 1, 0.7, progress.StatusInProgress, timePtr(testNow.Add(time.Hour)))
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepNew {
		t.Errorf("kind = %q, want %q", step.Kind, engine.StepNew)
	}
}

func TestSelector_NextStep_SkipsEffectivelyCompleted(t *testing.T) {
	records := progress.NewMemoryStore()
	seedRecord(t, records, 1, 0.96, progress.StatusMastered, nil)
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepNew || step.TopicID == 1 {
		t.Errorf("step = %+v, want a new topic other than 1", step)
	}
}

func TestSelector_NextStep_HighButNotCompletedStillSuggested(t *testing.T) {
	// 0.94 sits below the completion cutoff, so the topic stays in play.
	records := progress.NewMemoryStore()
	seedRecord(t, records, 1, 0.94, progress.StatusMastered, nil)
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.TopicID != 1 {
		t.Errorf("step = %+v, want topic 1 suggested again", step)
	}
}

func TestSelector_NextStep_AllCompleted(t *testing.T) {
	records := progress.NewMemoryStore()
	for _, topicID := range []int64{1, 2, 3} {
		seedRecord(t, records, topicID, 1.0, progress.StatusMastered, nil)
	}
	sel := newTestSelector(t, records)

	step, err := sel.NextStep(t.Context(), 1)
	if err != nil {
		t.Fatalf("NextStep() error = %v", err)
	}
	if step.Kind != engine.StepComplete {
		t.Fatalf("kind = %q, want %q", step.Kind, engine.StepComplete)
	}
	if step.TopicID != 0 || step.TopicName != "" {
		t.Errorf("complete step carries topic fields: %+v", step)
	}
}

func TestSelector_NextStep_UnknownLearner(t *testing.T) {
	sel := newTestSelector(t, progress.NewMemoryStore())

	_, err := sel.NextStep(t.Context(), 42)
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("NextStep() error = %v, want ErrNotFound", err)
	}
}

func TestSelector_NextStep_InvalidLearnerID(t *testing.T) {
	sel := newTestSelector(t, progress.NewMemoryStore())

	_, err := sel.NextStep(t.Context(), 0)
	if !errors.Is(err, engine.ErrInvalidArgument) {
		t.Errorf("NextStep() error = %v, want ErrInvalidArgument", err)
	}
}
