package engine_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cyber-sensei/backend/internal/engine"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/progress"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestLearners(t *testing.T) *learner.MemoryStore {
	t.Helper()

	store := learner.NewMemoryStore()
	if _, err := store.Create(t.Context(), "alice", "Alice", "hunter22"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return store
}

func newTestEstimator(t *testing.T) (*engine.Estimator, *progress.MemoryStore) {
	t.Helper()

	records := progress.NewMemoryStore()
	records.SetNow(func() time.Time { return testNow })
	est := engine.NewEstimator(engine.EstimatorConfig{
		Records:  records,
		Catalog:  newTestCatalog(t),
		Learners: newTestLearners(t),
		Now:      func() time.Time { return testNow },
	})
	return est, records
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestEstimator_UpdateMastery_CorrectAnswer(t *testing.T) {
	est, records := newTestEstimator(t)

	// One correct answer from the default prior of 0.2 lands in the
	// in-progress band.
	knowledge, err := est.UpdateMastery(t.Context(), 1, 1, true)
	if err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}
	if !almostEqual(knowledge, 0.6706) {
		t.Errorf("knowledge = %v, want ~0.6706", knowledge)
	}

	recs, err := records.ForLearner(t.Context(), 1)
	if err != nil {
		t.Fatalf("ForLearner() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("record count = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Status != progress.StatusInProgress {
		t.Errorf("status = %q, want %q", rec.Status, progress.StatusInProgress)
	}
	if rec.TotalAttempts != 1 || rec.CorrectAttempts != 1 {
		t.Errorf("attempts = %d/%d, want 1/1", rec.CorrectAttempts, rec.TotalAttempts)
	}
	wantReview := testNow.Add(2 * 24 * time.Hour)
	if rec.NextReviewAt == nil || !rec.NextReviewAt.Equal(wantReview) {
		t.Errorf("NextReviewAt = %v, want %v", rec.NextReviewAt, wantReview)
	}
}

func TestEstimator_UpdateMastery_IncorrectDropsBand(t *testing.T) {
	est, records := newTestEstimator(t)

	if _, err := est.UpdateMastery(t.Context(), 1, 1, true); err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}
	knowledge, err := est.UpdateMastery(t.Context(), 1, 1, false)
	if err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}
	if !almostEqual(knowledge, 0.442) {
		t.Errorf("knowledge = %v, want ~0.442", knowledge)
	}

	recs, _ := records.ForLearner(t.Context(), 1)
	rec := recs[0]
	if rec.Status != progress.StatusNotStarted {
		t.Errorf("status = %q, want %q", rec.Status, progress.StatusNotStarted)
	}
	if rec.TotalAttempts != 2 || rec.CorrectAttempts != 1 {
		t.Errorf("attempts = %d/%d, want 1/2", rec.CorrectAttempts, rec.TotalAttempts)
	}
	wantReview := testNow.Add(24 * time.Hour)
	if rec.NextReviewAt == nil || !rec.NextReviewAt.Equal(wantReview) {
		t.Errorf("NextReviewAt = %v, want %v", rec.NextReviewAt, wantReview)
	}
}

func TestEstimator_UpdateMastery_MonotonicAndBounded(t *testing.T) {
	est, _ := newTestEstimator(t)

	prev := 0.0
	for i := range 10 {
		knowledge, err := est.UpdateMastery(t.Context(), 1, 1, true)
		if err != nil {
			t.Fatalf("UpdateMastery() #%d error = %v", i, err)
		}
		if knowledge < prev {
			t.Fatalf("knowledge decreased on a correct answer: %v -> %v", prev, knowledge)
		}
		if knowledge < 0 || knowledge > 1 {
			t.Fatalf("knowledge out of bounds: %v", knowledge)
		}
		prev = knowledge
	}
	if prev < 0.9 {
		t.Errorf("knowledge after 10 correct answers = %v, want >= 0.9", prev)
	}
}

func TestEstimator_UpdateMastery_MasteredSchedule(t *testing.T) {
	est, records := newTestEstimator(t)

	for range 10 {
		if _, err := est.UpdateMastery(t.Context(), 1, 1, true); err != nil {
			t.Fatalf("UpdateMastery() error = %v", err)
		}
	}

	recs, _ := records.ForLearner(t.Context(), 1)
	rec := recs[0]
	if rec.Status != progress.StatusMastered {
		t.Errorf("status = %q, want %q", rec.Status, progress.StatusMastered)
	}
	wantReview := testNow.Add(7 * 24 * time.Hour)
	if rec.NextReviewAt == nil || !rec.NextReviewAt.Equal(wantReview) {
		t.Errorf("NextReviewAt = %v, want %v", rec.NextReviewAt, wantReview)
	}
}

func TestEstimator_UpdateMastery_InvalidIDs(t *testing.T) {
	tests := []struct {
		name      string
		learnerID int64
		topicID   int64
	}{
		{"zero-learner", 0, 1},
		{"negative-learner", -3, 1},
		{"zero-topic", 1, 0},
		{"negative-topic", 1, -1},
	}

	est, _ := newTestEstimator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := est.UpdateMastery(t.Context(), tt.learnerID, tt.topicID, true)
			if !errors.Is(err, engine.ErrInvalidArgument) {
				t.Errorf("UpdateMastery() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestEstimator_MarkComplete(t *testing.T) {
	est, records := newTestEstimator(t)

	if _, err := est.UpdateMastery(t.Context(), 1, 1, false); err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}

	topic, err := est.MarkComplete(t.Context(), 1, 1)
	if err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}
	if topic.Name != "Network Fundamentals" {
		t.Errorf("topic name = %q, want %q", topic.Name, "Network Fundamentals")
	}

	recs, _ := records.ForLearner(t.Context(), 1)
	rec := recs[0]
	if rec.Knowledge != 1.0 {
		t.Errorf("knowledge = %v, want 1.0", rec.Knowledge)
	}
	if rec.Status != progress.StatusMastered {
		t.Errorf("status = %q, want %q", rec.Status, progress.StatusMastered)
	}
	// Completion is not an observation; attempts keep their values.
	if rec.TotalAttempts != 1 || rec.CorrectAttempts != 0 {
		t.Errorf("attempts = %d/%d, want 0/1", rec.CorrectAttempts, rec.TotalAttempts)
	}
}

func TestEstimator_MarkComplete_UnknownTopic(t *testing.T) {
	est, _ := newTestEstimator(t)

	_, err := est.MarkComplete(t.Context(), 1, 99)
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("MarkComplete() error = %v, want ErrNotFound", err)
	}
}

func TestEstimator_Dashboard(t *testing.T) {
	est, _ := newTestEstimator(t)

	if _, err := est.UpdateMastery(t.Context(), 1, 1, true); err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}
	if _, err := est.MarkComplete(t.Context(), 1, 2); err != nil {
		t.Fatalf("MarkComplete() error = %v", err)
	}

	d, err := est.Dashboard(t.Context(), 1)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.TotalTopics != 2 || d.Mastered != 1 {
		t.Errorf("totals = %d tracked / %d mastered, want 2/1", d.TotalTopics, d.Mastered)
	}
	if d.ProgressPercent != 50 {
		t.Errorf("ProgressPercent = %v, want 50", d.ProgressPercent)
	}
	if len(d.Topics) != 2 {
		t.Fatalf("topic rows = %d, want 2", len(d.Topics))
	}
	if d.Topics[0].TopicID != 1 || d.Topics[0].Mastery != "67%" {
		t.Errorf("row 0 = %+v, want topic 1 at 67%%", d.Topics[0])
	}
	if d.Topics[1].Name != "Broken Topic" || d.Topics[1].Status != progress.StatusMastered {
		t.Errorf("row 1 = %+v, want mastered Broken Topic", d.Topics[1])
	}
}

func TestEstimator_Dashboard_NoRecords(t *testing.T) {
	est, _ := newTestEstimator(t)

	d, err := est.Dashboard(t.Context(), 1)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.TotalTopics != 0 || d.Mastered != 0 {
		t.Errorf("totals = %d/%d, want 0/0", d.TotalTopics, d.Mastered)
	}
	if d.ProgressPercent != 0 || math.IsNaN(d.ProgressPercent) {
		t.Errorf("ProgressPercent = %v, want 0", d.ProgressPercent)
	}
}

func TestEstimator_Dashboard_UnknownLearner(t *testing.T) {
	est, _ := newTestEstimator(t)

	_, err := est.Dashboard(t.Context(), 42)
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Dashboard() error = %v, want ErrNotFound", err)
	}
}
