package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ConfigSource fetches verification parameters from a gateway's discovery
// endpoint and memoizes them per gateway URL. The default policy is to cache
// for the process lifetime: the values are operationally static, and a
// rotation requires restarting consumers. WithTTL opts into time-based
// refresh without changing callers.
type ConfigSource struct {
	httpClient *http.Client
	ttl        time.Duration

	mu       sync.RWMutex
	cached   map[string]cachedConfig
	inFlight singleflight.Group
}

type cachedConfig struct {
	config    Config
	fetchedAt time.Time
}

// ConfigSourceOption configures a ConfigSource.
type ConfigSourceOption func(*ConfigSource)

// WithTTL bounds how long a fetched config is served before re-fetching.
// Zero (the default) caches forever.
func WithTTL(ttl time.Duration) ConfigSourceOption {
	return func(s *ConfigSource) {
		s.ttl = ttl
	}
}

// WithHTTPClient overrides the HTTP client used for discovery fetches.
func WithHTTPClient(hc *http.Client) ConfigSourceOption {
	return func(s *ConfigSource) {
		s.httpClient = hc
	}
}

// NewConfigSource constructs a ConfigSource.
func NewConfigSource(opts ...ConfigSourceOption) *ConfigSource {
	s := &ConfigSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cached:     make(map[string]cachedConfig),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Fetch returns the verification parameters for gatewayURL, hitting the
// network only on the first call (or after TTL expiry when configured).
// Concurrent first calls are collapsed into a single fetch.
func (s *ConfigSource) Fetch(ctx context.Context, gatewayURL string) (Config, error) {
	gatewayURL = strings.TrimSuffix(gatewayURL, "/")

	s.mu.RLock()
	entry, ok := s.cached[gatewayURL]
	s.mu.RUnlock()
	if ok && !s.stale(entry) {
		return entry.config, nil
	}

	result, err, _ := s.inFlight.Do(gatewayURL, func() (any, error) {
		return s.fetch(ctx, gatewayURL)
	})
	if err != nil {
		return Config{}, err
	}
	return result.(Config), nil
}

func (s *ConfigSource) stale(entry cachedConfig) bool {
	return s.ttl > 0 && time.Since(entry.fetchedAt) > s.ttl
}

func (s *ConfigSource) fetch(ctx context.Context, gatewayURL string) (Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL+"/auth/config", nil)
	if err != nil {
		return Config{}, fmt.Errorf("build discovery request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Config{}, fmt.Errorf("fetch auth config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Config{}, fmt.Errorf("fetch auth config: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Config{}, fmt.Errorf("read auth config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode auth config: %w", err)
	}

	s.mu.Lock()
	s.cached[gatewayURL] = cachedConfig{config: cfg, fetchedAt: time.Now()}
	s.mu.Unlock()

	return cfg, nil
}
