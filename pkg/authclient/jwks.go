package authclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeySource fetches and caches the signing keys for one IdP domain. The
// underlying jwk.Cache refreshes keys in the background for the lifetime of
// the context passed at construction; there is no explicit rotation handling
// beyond that.
type KeySource struct {
	jwksURL string
	cache   *jwk.Cache

	mu         sync.Mutex
	registered bool
}

// NewKeySource builds a KeySource for the given IdP domain. ctx controls the
// background refresh goroutine and should live as long as the process.
func NewKeySource(ctx context.Context, domain string) (*KeySource, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("create JWKS cache: %w", err)
	}
	return &KeySource{
		jwksURL: jwksURLForDomain(domain),
		cache:   cache,
	}, nil
}

func jwksURLForDomain(domain string) string {
	return "https://" + domain + "/.well-known/jwks.json"
}

// WithJWKSURL overrides the derived JWKS URL; tests point it at a local
// server.
func (s *KeySource) WithJWKSURL(jwksURL string) *KeySource {
	s.jwksURL = jwksURL
	return s
}

// register defers the first JWKS fetch until a token actually needs
// verifying, so constructing a KeySource never does network I/O. A failed
// registration is not cached: the next verification attempts it again.
func (s *KeySource) register(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered {
		return nil
	}

	registerCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.cache.Register(registerCtx, s.jwksURL); err != nil {
		return fmt.Errorf("register JWKS URL: %w", err)
	}
	s.registered = true
	return nil
}

// Keyfunc returns a golang-jwt key resolver backed by the cached key set.
// Only RSA keys are ever handed out; any other signing method is rejected
// before the key lookup.
func (s *KeySource) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if err := s.register(ctx); err != nil {
			return nil, err
		}

		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token header missing kid")
		}

		keySet, err := s.cache.Lookup(ctx, s.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("lookup JWKS: %w", err)
		}

		key, found := keySet.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
		}

		var rawKey any
		if err := jwk.Export(key, &rawKey); err != nil {
			return nil, fmt.Errorf("export raw key: %w", err)
		}
		return rawKey, nil
	}
}

// KeySources caches one KeySource per IdP domain for the process lifetime.
// There is no eviction by default; a domain rotation requires a restart.
type KeySources struct {
	// baseCtx bounds the background refresh of every KeySource created here.
	// It must be the process context, never a request context: the jwk.Cache
	// outlives any single request, and its refresh loop dies with this ctx.
	baseCtx context.Context

	mu      sync.Mutex
	sources map[string]*KeySource
}

// NewKeySources constructs an empty per-domain KeySource cache. ctx should
// live as long as the process; see KeySources.baseCtx.
func NewKeySources(ctx context.Context) *KeySources {
	return &KeySources{baseCtx: ctx, sources: make(map[string]*KeySource)}
}

// ForDomain returns the cached KeySource for domain, creating it on first
// use.
func (c *KeySources) ForDomain(domain string) (*KeySource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.sources[domain]; ok {
		return src, nil
	}
	src, err := NewKeySource(c.baseCtx, domain)
	if err != nil {
		return nil, err
	}
	c.sources[domain] = src
	return src, nil
}
