package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists mastery records.
type Store interface {
	// Update loads or lazily creates the record for (learnerID, topicID),
	// applies mutate to it, and persists the result atomically. If mutate
	// returns an error nothing is written and the error is returned.
	Update(ctx context.Context, learnerID, topicID int64, mutate func(*MasteryRecord) error) (MasteryRecord, error)

	// ForLearner returns all of a learner's records ordered by topic id.
	ForLearner(ctx context.Context, learnerID int64) ([]MasteryRecord, error)
}

type recordKey struct {
	learnerID int64
	topicID   int64
}

// MemoryStore is an in-memory Store implementation for tests and local runs.
type MemoryStore struct {
	records map[recordKey]MasteryRecord
	now     func() time.Time
	mu      sync.Mutex
}

// NewMemoryStore creates an empty in-memory mastery store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]MasteryRecord),
		now:     time.Now,
	}
}

// SetNow overrides the clock used to stamp lazily created records.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Update(_ context.Context, learnerID, topicID int64, mutate func(*MasteryRecord) error) (MasteryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{learnerID, topicID}
	rec, ok := s.records[key]
	if !ok {
		rec = NewRecord(learnerID, topicID, s.now())
	}

	if err := mutate(&rec); err != nil {
		return MasteryRecord{}, err
	}

	s.records[key] = rec
	return rec, nil
}

func (s *MemoryStore) ForLearner(_ context.Context, learnerID int64) ([]MasteryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []MasteryRecord
	for key, rec := range s.records {
		if key.learnerID == learnerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}
