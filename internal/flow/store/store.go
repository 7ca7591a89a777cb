// Package store persists in-flight authorization attempts. Entries are
// TTL-bounded and single-use: Claim removes the entry as it reads it, so a
// state token can never complete two callbacks.
package store

import (
	"context"
	"time"

	"authgate/internal/flow/models"
)

// Error Contract:
// - Claim returns ErrNotFound (wrapped) when the state is unknown, expired,
//   or already consumed. Callers treat all three identically.
// - Infrastructure failures are returned wrapped with context.

// Store holds pending logins keyed by state token.
type Store interface {
	// Put stores the pending login under state with the given TTL.
	Put(ctx context.Context, state string, pending models.PendingLogin, ttl time.Duration) error

	// Claim atomically reads and deletes the entry for state. A second Claim
	// with the same state fails with ErrNotFound.
	Claim(ctx context.Context, state string) (models.PendingLogin, error)
}
