// Package progress persists per-learner, per-topic mastery state for the
// adaptive engine. Records are created lazily on first interaction and are
// only ever mutated through Store.Update so the multi-field BKT write stays
// atomic.
package progress

import "time"

// Status is the coarse mastery band derived from the knowledge probability.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusMastered   Status = "mastered"
)

// Default BKT parameters seeded into a record at creation. Individual
// records may carry overrides.
const (
	DefaultKnowledge = 0.2
	DefaultLearn     = 0.3
	DefaultGuess     = 0.2
	DefaultSlip      = 0.1
)

// MasteryRecord is the engine's central mutable entity, one per
// (learner, topic) pair.
type MasteryRecord struct {
	LearnerID int64
	TopicID   int64

	Knowledge float64 // current BKT estimate, in [0,1]
	Slip      float64
	Guess     float64
	Learn     float64

	TotalAttempts   int
	CorrectAttempts int

	Status         Status
	NextReviewAt   *time.Time // nil until first attempt
	LastAccessedAt time.Time
	CreatedAt      time.Time
}

// NewRecord seeds a fresh record with the default BKT parameters.
func NewRecord(learnerID, topicID int64, now time.Time) MasteryRecord {
	return MasteryRecord{
		LearnerID:      learnerID,
		TopicID:        topicID,
		Knowledge:      DefaultKnowledge,
		Slip:           DefaultSlip,
		Guess:          DefaultGuess,
		Learn:          DefaultLearn,
		Status:         StatusNotStarted,
		LastAccessedAt: now,
		CreatedAt:      now,
	}
}

// DueForReview reports whether the record's scheduled review time has passed.
// Only in-progress and mastered topics participate in spaced repetition.
func (r MasteryRecord) DueForReview(now time.Time) bool {
	if r.NextReviewAt == nil {
		return false
	}
	if r.Status != StatusInProgress && r.Status != StatusMastered {
		return false
	}
	return !r.NextReviewAt.After(now)
}
