package store

import (
	"context"
	"sync"

	"veriflow/internal/attempt/models"
	"veriflow/pkg/domain"
)

// MemoryStore keeps attempt history in memory for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []models.Attempt
}

// NewMemory constructs an empty in-memory attempt store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Append records one finished attempt.
func (s *MemoryStore) Append(_ context.Context, a models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

// ListByUser returns the user's most recent attempts, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID domain.UserID, limit int) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Attempt, 0, limit)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.attempts[i].UserID == userID {
			out = append(out, s.attempts[i])
		}
	}
	return out, nil
}
