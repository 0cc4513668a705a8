// Package engine implements the adaptive mastery and curriculum engine:
// quiz grading, Bayesian Knowledge Tracing updates with spaced-repetition
// scheduling, and next-step selection over the topic catalog.
package engine

import "errors"

// Error taxonomy surfaced to the boundary layer. Callers match with
// errors.Is; each kind maps to a distinct client-visible condition.
var (
	// ErrNotFound covers missing learners, missing topics, and topics
	// with an empty question bank.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfiguration signals an authoring error in the quiz
	// content, e.g. a question with no correct option.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidArgument signals malformed input (non-positive ids,
	// malformed submissions). Rejected before any persistence attempt.
	ErrInvalidArgument = errors.New("invalid argument")
)
