package flow

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"authgate/internal/flow/store"
	"authgate/internal/idp"
	"authgate/internal/platform/config"
	"authgate/pkg/sentinel"
)

var testIdP = config.IdP{
	Domain:   "tenant.auth.example.com",
	ClientID: "test-client-id",
	Audience: "https://api.example.com",
}

const testCallback = "https://gateway.example.com/callback"

type fakeExchanger struct {
	gotCode     string
	gotVerifier string
	gotRedirect string
	resp        *idp.TokenResponse
	err         error
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code, codeVerifier, redirectURI string) (*idp.TokenResponse, error) {
	f.gotCode = code
	f.gotVerifier = codeVerifier
	f.gotRedirect = redirectURI
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	exchanger *fakeExchanger
	svc       *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.exchanger = &fakeExchanger{
		resp: &idp.TokenResponse{
			AccessToken:  "at-123",
			RefreshToken: "rt-456",
			TokenType:    "Bearer",
			ExpiresIn:    3600,
		},
	}
	s.svc = New(s.store, s.exchanger, testIdP, testCallback, []string{
		"https://app.example.com/dashboard",
		"https://other.example.com/",
	})
	s.ctx = context.Background()
}

// begin starts a flow and hands back the parsed authorize URL plus the state
// the service minted.
func (s *ServiceSuite) begin(redirectURI string) (url.Values, string) {
	authURL, err := s.svc.Begin(s.ctx, "google", redirectURI)
	s.Require().NoError(err)

	parsed, err := url.Parse(authURL)
	s.Require().NoError(err)
	return parsed.Query(), parsed.Query().Get("state")
}

func (s *ServiceSuite) TestBegin() {
	s.Run("builds the full authorize URL", func() {
		authURL, err := s.svc.Begin(s.ctx, "google", "https://app.example.com/dashboard")
		s.Require().NoError(err)
		s.True(strings.HasPrefix(authURL, "https://tenant.auth.example.com/authorize?"))

		parsed, err := url.Parse(authURL)
		s.Require().NoError(err)
		q := parsed.Query()
		s.Equal("code", q.Get("response_type"))
		s.Equal("test-client-id", q.Get("client_id"))
		s.Equal(testCallback, q.Get("redirect_uri"))
		s.Equal(Scopes, q.Get("scope"))
		s.Equal("https://api.example.com", q.Get("audience"))
		s.Equal("S256", q.Get("code_challenge_method"))
		s.Equal("google-oauth2", q.Get("connection"))
		s.NotEmpty(q.Get("state"))
		s.NotEmpty(q.Get("code_challenge"))
	})

	s.Run("challenge is the S256 hash of the stored verifier", func() {
		q, state := s.begin("")

		pending, err := s.store.Claim(s.ctx, state)
		s.Require().NoError(err)

		sum := sha256.Sum256([]byte(pending.CodeVerifier))
		want := base64.RawURLEncoding.EncodeToString(sum[:])
		s.Equal(want, q.Get("code_challenge"))
	})

	s.Run("challenge and state are URL-safe", func() {
		q, state := s.begin("")
		for _, v := range []string{q.Get("code_challenge"), state} {
			s.NotContains(v, "+")
			s.NotContains(v, "/")
			s.NotContains(v, "=")
		}
	})

	s.Run("state and verifier are fresh per attempt", func() {
		_, state1 := s.begin("")
		_, state2 := s.begin("")
		s.NotEqual(state1, state2)

		p1, err := s.store.Claim(s.ctx, state1)
		s.Require().NoError(err)
		p2, err := s.store.Claim(s.ctx, state2)
		s.Require().NoError(err)
		s.NotEqual(p1.CodeVerifier, p2.CodeVerifier)
	})

	s.Run("rejects a redirect URI off the allow-list", func() {
		_, err := s.svc.Begin(s.ctx, "google", "https://evil.example.com/")
		s.ErrorIs(err, sentinel.ErrInvalidRedirect)
	})

	s.Run("rejects an unknown provider", func() {
		_, err := s.svc.Begin(s.ctx, "myspace", "")
		s.ErrorIs(err, sentinel.ErrUnsupportedProvider)
	})
}

func (s *ServiceSuite) TestComplete() {
	s.Run("redeems the code with the stored verifier", func() {
		_, state := s.begin("https://app.example.com/dashboard")

		tokens, redirectURI, err := s.svc.Complete(s.ctx, "auth-code", state)
		s.Require().NoError(err)
		s.Equal("at-123", tokens.AccessToken)
		s.Equal("rt-456", tokens.RefreshToken)
		s.Equal("https://app.example.com/dashboard", redirectURI)
		s.Equal("auth-code", s.exchanger.gotCode)
		s.NotEmpty(s.exchanger.gotVerifier)
		s.Equal(testCallback, s.exchanger.gotRedirect)
	})

	s.Run("empty redirect falls back to root", func() {
		_, state := s.begin("")

		_, redirectURI, err := s.svc.Complete(s.ctx, "auth-code", state)
		s.Require().NoError(err)
		s.Equal("/", redirectURI)
	})

	s.Run("replayed state fails", func() {
		_, state := s.begin("")

		_, _, err := s.svc.Complete(s.ctx, "auth-code", state)
		s.Require().NoError(err)

		_, _, err = s.svc.Complete(s.ctx, "auth-code", state)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown state fails without contacting the IdP", func() {
		s.exchanger.gotCode = ""

		_, _, err := s.svc.Complete(s.ctx, "auth-code", "forged-state")
		s.ErrorIs(err, sentinel.ErrInvalidState)
		s.Empty(s.exchanger.gotCode)
	})

	s.Run("exchange failure consumes the state", func() {
		_, state := s.begin("")
		s.exchanger.err = errors.New("idp unavailable")

		_, _, err := s.svc.Complete(s.ctx, "auth-code", state)
		s.ErrorIs(err, sentinel.ErrExchangeFailed)

		s.exchanger.err = nil
		_, _, err = s.svc.Complete(s.ctx, "auth-code", state)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func TestValidateRedirect(t *testing.T) {
	svc := New(store.NewMemory(), &fakeExchanger{}, testIdP, testCallback, []string{
		"https://app.example.com/dashboard/",
	})

	t.Run("empty is allowed", func(t *testing.T) {
		assert.NoError(t, svc.ValidateRedirect(""))
	})

	t.Run("trailing slash is normalized both ways", func(t *testing.T) {
		assert.NoError(t, svc.ValidateRedirect("https://app.example.com/dashboard"))
		assert.NoError(t, svc.ValidateRedirect("https://app.example.com/dashboard/"))
	})

	t.Run("prefix match is not enough", func(t *testing.T) {
		err := svc.ValidateRedirect("https://app.example.com/dashboard/../admin")
		require.ErrorIs(t, err, sentinel.ErrInvalidRedirect)
	})
}

func TestProviders(t *testing.T) {
	assert.Equal(t, []string{"google"}, Providers())
}
