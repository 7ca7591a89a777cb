// Package flow implements the gateway side of the OAuth 2.0 Authorization
// Code flow with PKCE: minting verifier/challenge/state triples, parking them
// in the state store, and redeeming the callback exactly once.
package flow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"authgate/internal/flow/models"
	"authgate/internal/flow/store"
	"authgate/internal/idp"
	"authgate/internal/platform/config"
	"authgate/pkg/sentinel"
)

var tracer = otel.Tracer("authgate/flow")

// PendingTTL bounds how long an authorization attempt may stay in flight.
const PendingTTL = 300 * time.Second

// Scopes requested from the IdP. offline_access is what makes the IdP return
// a refresh token.
const Scopes = "openid profile email offline_access"

// CodeExchanger redeems an authorization code at the IdP. Satisfied by
// *idp.Client; narrowed to an interface so tests can fake the IdP.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*idp.TokenResponse, error)
}

// Service owns the PKCE protocol state machine.
type Service struct {
	store    store.Store
	idp      CodeExchanger
	cfg      config.IdP
	callback string
	allowed  []string
}

// New constructs the flow service. callbackURL is the gateway's registered
// /callback endpoint; allowedRedirectURIs is the consumer allow-list.
func New(s store.Store, exchanger CodeExchanger, cfg config.IdP, callbackURL string, allowedRedirectURIs []string) *Service {
	allowed := make([]string, 0, len(allowedRedirectURIs))
	for _, uri := range allowedRedirectURIs {
		allowed = append(allowed, normalizeURI(uri))
	}
	return &Service{
		store:    s,
		idp:      exchanger,
		cfg:      cfg,
		callback: callbackURL,
		allowed:  allowed,
	}
}

// ValidateRedirect checks redirectURI against the allow-list. An empty URI is
// accepted; completion falls back to "/". Matching is exact after
// trailing-slash normalization.
func (s *Service) ValidateRedirect(redirectURI string) error {
	if redirectURI == "" {
		return nil
	}
	normalized := normalizeURI(redirectURI)
	for _, uri := range s.allowed {
		if uri == normalized {
			return nil
		}
	}
	return fmt.Errorf("%q is not on the allow-list: %w", redirectURI, sentinel.ErrInvalidRedirect)
}

// Begin starts an authorization flow: validates inputs, generates the PKCE
// triple, parks the verifier in the state store, and returns the fully formed
// IdP authorization URL.
func (s *Service) Begin(ctx context.Context, provider, redirectURI string) (string, error) {
	ctx, span := tracer.Start(ctx, "flow.begin",
		trace.WithAttributes(attribute.String("auth.provider", provider)))
	defer span.End()

	if err := s.ValidateRedirect(redirectURI); err != nil {
		return "", err
	}

	connection, ok := connections[provider]
	if !ok {
		return "", fmt.Errorf("provider %q: %w", provider, sentinel.ErrUnsupportedProvider)
	}

	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)
	state, err := newState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	pending := models.PendingLogin{
		CodeVerifier: verifier,
		RedirectURI:  redirectURI,
	}
	if err := s.store.Put(ctx, state, pending, PendingTTL); err != nil {
		return "", fmt.Errorf("store pending login: %w", err)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.cfg.ClientID)
	q.Set("redirect_uri", s.callback)
	q.Set("scope", Scopes)
	q.Set("audience", s.cfg.Audience)
	q.Set("state", state)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("connection", connection)

	return "https://" + s.cfg.Domain + "/authorize?" + q.Encode(), nil
}

// Complete redeems the callback. The state entry is claimed (read and
// deleted) before the IdP is contacted, so a replayed callback fails even if
// the exchange below does too. Returns the token pair and the consumer
// redirect target.
func (s *Service) Complete(ctx context.Context, code, state string) (models.TokenPair, string, error) {
	ctx, span := tracer.Start(ctx, "flow.complete")
	defer span.End()

	pending, err := s.store.Claim(ctx, state)
	if err != nil {
		span.RecordError(err)
		return models.TokenPair{}, "", fmt.Errorf("claim state: %w", sentinel.ErrInvalidState)
	}

	tokens, err := s.idp.ExchangeCode(ctx, code, pending.CodeVerifier, s.callback)
	if err != nil {
		span.RecordError(err)
		// Keep the IdP's description attached for diagnostics; the pending
		// entry is already gone, so the user restarts at /login.
		return models.TokenPair{}, "", fmt.Errorf("%w: %w", sentinel.ErrExchangeFailed, err)
	}

	redirectURI := pending.RedirectURI
	if redirectURI == "" {
		redirectURI = "/"
	}

	return models.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, redirectURI, nil
}

// newState returns a 128-bit random URL-safe token. Entropy, not secrecy of
// the format, is what makes state unguessable.
func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// normalizeURI strips trailing slashes so "https://a/" and "https://a" match.
func normalizeURI(uri string) string {
	return strings.TrimRight(uri, "/")
}
