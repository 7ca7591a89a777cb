package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"authgate/internal/flow/models"
	"authgate/pkg/sentinel"
)

var claimDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "authgate_pending_login_claim_duration_ms",
	Help:    "Latency of single-use state claims in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for pending logins.
const pendingKeyPrefix = "pkce:"

// RedisStore is the production pending-login store. The key space is shared
// across all gateway instances. Claim uses GETDEL so the read and the delete
// are a single Redis command; two concurrent claims of the same state cannot
// both succeed on one node.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed pending-login store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, state string, pending models.PendingLogin, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending login: %w", err)
	}
	return s.client.Set(ctx, pendingKeyPrefix+state, data, ttl).Err()
}

func (s *RedisStore) Claim(ctx context.Context, state string) (models.PendingLogin, error) {
	start := time.Now()
	defer func() {
		claimDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	data, err := s.client.GetDel(ctx, pendingKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.PendingLogin{}, fmt.Errorf("pending login not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return models.PendingLogin{}, fmt.Errorf("claim pending login: %w", err)
	}

	var pending models.PendingLogin
	if err := json.Unmarshal(data, &pending); err != nil {
		return models.PendingLogin{}, fmt.Errorf("unmarshal pending login: %w", err)
	}
	return pending, nil
}
