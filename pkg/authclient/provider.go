package authclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

// AccessTokenCookie is the cookie name the gateway issues access tokens
// under. Mirrored here so consumers need no import of gateway internals.
const AccessTokenCookie = "access_token"

// Provider resolves the authenticated user for an inbound request. A nil
// user with a non-nil error always means "unauthenticated"; callers must not
// distinguish failure modes for authorization purposes. Implementations are
// selected once at process start, never branched per request.
type Provider interface {
	UserFromRequest(ctx context.Context, r *http.Request) (*AuthUser, error)
}

// LocalVerifierProvider verifies the access-token cookie in process against
// a pre-configured issuer/audience pair.
type LocalVerifierProvider struct {
	verifier *Verifier
}

// NewLocalVerifierProvider wires a Provider around an embedded Verifier.
func NewLocalVerifierProvider(verifier *Verifier) *LocalVerifierProvider {
	return &LocalVerifierProvider{verifier: verifier}
}

func (p *LocalVerifierProvider) UserFromRequest(ctx context.Context, r *http.Request) (*AuthUser, error) {
	token := CookieToken(r, AccessTokenCookie)
	if token == "" {
		return nil, ErrNoToken
	}
	return p.verifier.Verify(ctx, token)
}

// RemoteGatewayProvider verifies tokens locally but learns its verification
// parameters from the gateway's discovery endpoint on first use. The fetched
// config and the per-domain key source are cached for the process lifetime.
type RemoteGatewayProvider struct {
	gatewayURL string
	configs    *ConfigSource
	keys       *KeySources

	mu       sync.Mutex
	verifier *Verifier
}

// NewRemoteGatewayProvider constructs a Provider bound to one gateway.
func NewRemoteGatewayProvider(gatewayURL string, configs *ConfigSource, keys *KeySources) *RemoteGatewayProvider {
	return &RemoteGatewayProvider{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		configs:    configs,
		keys:       keys,
	}
}

func (p *RemoteGatewayProvider) UserFromRequest(ctx context.Context, r *http.Request) (*AuthUser, error) {
	token := CookieToken(r, AccessTokenCookie)
	if token == "" {
		return nil, ErrNoToken
	}

	verifier, err := p.ensureVerifier(ctx)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, token)
}

func (p *RemoteGatewayProvider) ensureVerifier(ctx context.Context) (*Verifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifier != nil {
		return p.verifier, nil
	}

	cfg, err := p.configs.Fetch(ctx, p.gatewayURL)
	if err != nil {
		return nil, err
	}
	keys, err := p.keys.ForDomain(cfg.Domain)
	if err != nil {
		return nil, err
	}

	p.verifier = NewVerifier(keys, IssuerForDomain(cfg.Domain), cfg.Audience)
	return p.verifier, nil
}

// devTokenPrefix marks dev-stub session cookies.
const devTokenPrefix = "dev-"

// DevStubProvider fakes authentication for local development: a `session`
// cookie of the form "dev-<email>" becomes a user with that email. Never use
// this outside local development.
type DevStubProvider struct{}

// NewDevStubProvider constructs the dev stub.
func NewDevStubProvider() *DevStubProvider {
	return &DevStubProvider{}
}

func (*DevStubProvider) UserFromRequest(_ context.Context, r *http.Request) (*AuthUser, error) {
	token := CookieToken(r, "session")
	if !strings.HasPrefix(token, devTokenPrefix) {
		return nil, ErrNoToken
	}
	email := token[len(devTokenPrefix):]
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return &AuthUser{Subject: "dev|" + email, Email: email, Name: name}, nil
}
