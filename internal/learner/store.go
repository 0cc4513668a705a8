package learner

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists learner accounts.
type Store interface {
	ByID(ctx context.Context, id int64) (Learner, error)
	ByUsername(ctx context.Context, username string) (Learner, error)
	Create(ctx context.Context, username, displayName, password string) (Learner, error)
}

// MemoryStore is an in-memory Store implementation for tests and local runs.
type MemoryStore struct {
	byID   map[int64]Learner
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory learner store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[int64]Learner),
		nextID: 1,
	}
}

func (s *MemoryStore) ByID(_ context.Context, id int64) (Learner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.byID[id]
	if !ok {
		return Learner{}, ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) ByUsername(_ context.Context, username string) (Learner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.byID {
		if l.Username == username {
			return l, nil
		}
	}
	return Learner{}, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, username, displayName, password string) (Learner, error) {
	if username == "" {
		return Learner{}, fmt.Errorf("username is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Learner{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.byID {
		if l.Username == username {
			return Learner{}, fmt.Errorf("username %q already taken", username)
		}
	}

	l := Learner{
		ID:           s.nextID,
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.byID[l.ID] = l
	s.nextID++
	return l, nil
}
