package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrTopicNotFound is returned when a topic id has no catalog entry.
var ErrTopicNotFound = errors.New("topic not found")

// Store provides read access to the topic catalog.
type Store interface {
	Topic(ctx context.Context, id int64) (Topic, error)
	AllTopics(ctx context.Context) ([]Topic, error)
	// Questions returns a topic's question bank in ascending question-id
	// order. An empty slice means the topic has no quiz.
	Questions(ctx context.Context, topicID int64) ([]QuizQuestion, error)
}

// MemoryStore is an in-memory catalog, used in tests and for catalogs
// served straight from seed files.
type MemoryStore struct {
	topics    map[int64]Topic
	questions map[int64][]QuizQuestion // keyed by topic id
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:    make(map[int64]Topic),
		questions: make(map[int64][]QuizQuestion),
	}
}

// PutTopic adds or replaces a topic and its question bank.
func (s *MemoryStore) PutTopic(topic Topic, questions []QuizQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topics[topic.ID] = topic
	qs := make([]QuizQuestion, len(questions))
	copy(qs, questions)
	for i := range qs {
		qs[i].TopicID = topic.ID
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	s.questions[topic.ID] = qs
}

func (s *MemoryStore) Topic(_ context.Context, id int64) (Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return Topic{}, ErrTopicNotFound
	}
	return t, nil
}

func (s *MemoryStore) AllTopics(_ context.Context) ([]Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *MemoryStore) Questions(_ context.Context, topicID int64) ([]QuizQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qs := s.questions[topicID]
	out := make([]QuizQuestion, len(qs))
	copy(out, qs)
	return out, nil
}
