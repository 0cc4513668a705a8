package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cyber-sensei/backend/internal/catalog"
)

// Option is one answer choice as shown to a learner. The correctness flag
// never leaves the grader.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Question is one quiz question as shown to a learner.
type Question struct {
	ID          int64    `json:"id"`
	Prompt      string   `json:"prompt"`
	Explanation string   `json:"explanation,omitempty"`
	Options     []Option `json:"options"`
}

// Grader turns a topic's question bank plus submitted answers into a
// correct/total tally. Pure read-then-compute; no side effects.
type Grader struct {
	catalog catalog.Store
}

// NewGrader creates a grader backed by the given catalog.
func NewGrader(store catalog.Store) *Grader {
	return &Grader{catalog: store}
}

// Quiz returns the topic's questions in ascending question-id order,
// stripped of correctness flags.
func (g *Grader) Quiz(ctx context.Context, topicID int64) ([]Question, error) {
	questions, err := g.fetch(ctx, topicID)
	if err != nil {
		return nil, err
	}

	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		opts := make([]Option, 0, len(q.Options))
		for _, o := range q.Options {
			opts = append(opts, Option{Key: o.Key, Label: o.Label})
		}
		out = append(out, Question{
			ID:          q.ID,
			Prompt:      q.Prompt,
			Explanation: q.Explanation,
			Options:     opts,
		})
	}
	return out, nil
}

// AnswerKey maps each question id (as a string) to its correct option key.
func (g *Grader) AnswerKey(ctx context.Context, topicID int64) (map[string]string, error) {
	questions, err := g.fetch(ctx, topicID)
	if err != nil {
		return nil, err
	}

	key := make(map[string]string, len(questions))
	for _, q := range questions {
		correct, ok := q.CorrectKey()
		if !ok {
			return nil, fmt.Errorf("%w: question %d has no correct option", ErrInvalidConfiguration, q.ID)
		}
		key[strconv.FormatInt(q.ID, 10)] = correct
	}
	return key, nil
}

// Grade compares the submission against the answer key. Unanswered and
// unknown question ids count as incorrect; total is the size of the
// topic's question bank regardless of how many answers were given.
func (g *Grader) Grade(ctx context.Context, topicID int64, answers map[string]string) (correct, total int, err error) {
	key, err := g.AnswerKey(ctx, topicID)
	if err != nil {
		return 0, 0, err
	}

	total = len(key)
	for qid, want := range key {
		if answers[qid] == want {
			correct++
		}
	}
	return correct, total, nil
}

func (g *Grader) fetch(ctx context.Context, topicID int64) ([]catalog.QuizQuestion, error) {
	if topicID <= 0 {
		return nil, fmt.Errorf("%w: topic id %d", ErrInvalidArgument, topicID)
	}

	questions, err := g.catalog.Questions(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no quiz defined for topic %d", ErrNotFound, topicID)
	}
	return questions, nil
}
