package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authgate/internal/flow/models"
	"authgate/pkg/sentinel"
)

type memoryEntry struct {
	pending   models.PendingLogin
	expiresAt time.Time
}

// InMemoryStore holds pending logins in process memory for tests and dev.
// Claim is atomic under the mutex, so the single-use guarantee is strict here
// (unlike the distributed store, which approximates it).
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory constructs an empty in-memory pending-login store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Put(_ context.Context, state string, pending models.PendingLogin, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = memoryEntry{
		pending:   pending,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Claim(_ context.Context, state string) (models.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return models.PendingLogin{}, fmt.Errorf("pending login not found: %w", sentinel.ErrNotFound)
	}
	delete(s.entries, state)

	if s.now().After(entry.expiresAt) {
		return models.PendingLogin{}, fmt.Errorf("pending login expired: %w", sentinel.ErrNotFound)
	}
	return entry.pending, nil
}
