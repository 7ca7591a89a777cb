package authclient

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oauth2-proxy/mockoidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verifying a token minted by an independent OIDC implementation catches
// assumptions a self-signed fixture would hide.
func TestVerifyAgainstMockOIDC(t *testing.T) {
	m, err := mockoidc.Run()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	source, err := NewKeySource(ctx, "unused.example.com")
	require.NoError(t, err)
	source.WithJWKSURL(m.JWKSEndpoint())

	signed, err := m.Keypair.SignJWT(jwt.MapClaims{
		"iss": m.Issuer(),
		"aud": "test-audience",
		"sub": "mock-user",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	verifier := NewVerifier(source, m.Issuer(), "test-audience")
	user, err := verifier.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "mock-user", user.Subject)
}

func TestJWKSURLForDomain(t *testing.T) {
	assert.Equal(t,
		"https://tenant.auth.example.com/.well-known/jwks.json",
		jwksURLForDomain("tenant.auth.example.com"))
}

// A failed registration (here: the first caller's context is already gone)
// must not poison the KeySource; the next verification retries the fetch.
func TestKeySourceRegistrationRetriesAfterFailure(t *testing.T) {
	fixture := newJWKSFixture(t)

	source, err := NewKeySource(context.Background(), "tenant.auth.example.com")
	require.NoError(t, err)
	source.WithJWKSURL(fixture.jwksURL)
	verifier := NewVerifier(source, testIssuer, testAudience)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	token := fixture.sign(t, defaultClaims())
	_, err = verifier.Verify(cancelled, token)
	require.Error(t, err)

	user, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", user.Subject)
}

func TestKeySourcesForDomain(t *testing.T) {
	sources := NewKeySources(context.Background())

	first, err := sources.ForDomain("a.example.com")
	require.NoError(t, err)
	again, err := sources.ForDomain("a.example.com")
	require.NoError(t, err)
	other, err := sources.ForDomain("b.example.com")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
}
