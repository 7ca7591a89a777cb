package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration for the gateway.
type Server struct {
	Addr string

	// PublicURL is the externally reachable base URL of this gateway. It is
	// used to construct the registered OAuth callback and logout-callback
	// URLs, which must match what the IdP has on file.
	PublicURL string

	IdP   IdP
	Redis RedisConfig
	Audit AuditConfig

	// AllowedRedirectURIs is the closed set of consumer URIs the gateway
	// will redirect back to after login or logout.
	AllowedRedirectURIs []string
}

// IdP holds the relying-party credentials for the identity provider.
type IdP struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
}

// RedisConfig holds connection settings for the shared state store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig selects the audit sink. Empty brokers means in-memory only.
type AuditConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AUTHGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	publicURL := strings.TrimSuffix(os.Getenv("AUTHGATE_PUBLIC_URL"), "/")
	if publicURL == "" {
		publicURL = "http://localhost:8080"
	}

	topic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if topic == "" {
		topic = "authgate.audit"
	}

	return Server{
		Addr:      addr,
		PublicURL: publicURL,
		IdP: IdP{
			Domain:       os.Getenv("AUTH_IDP_DOMAIN"),
			ClientID:     os.Getenv("AUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("AUTH_CLIENT_SECRET"),
			Audience:     os.Getenv("AUTH_AUDIENCE"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			KafkaBrokers: splitList(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   topic,
		},
		AllowedRedirectURIs: splitList(os.Getenv("AUTH_ALLOWED_REDIRECT_URIS")),
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
