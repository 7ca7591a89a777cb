package authclient

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier verifies access tokens against one issuer/audience pair. Every
// check is mandatory and every failure is fail-closed: signature, RS256-only
// algorithm, issuer, audience, expiry.
type Verifier struct {
	keys     *KeySource
	issuer   string
	audience string
}

// NewVerifier constructs a Verifier. issuer must be the exact `iss` value the
// IdP mints, including any trailing slash.
func NewVerifier(keys *KeySource, issuer, audience string) *Verifier {
	return &Verifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
}

// IssuerForDomain renders the canonical issuer URL for an IdP domain.
func IssuerForDomain(domain string) string {
	return "https://" + domain + "/"
}

// Verify checks the token and extracts the canonical user claims. Any
// verification failure returns an error wrapping ErrTokenInvalid; a verified
// token without a subject returns ErrTokenMalformed.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*AuthUser, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
	)

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, v.keys.Keyfunc(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("missing sub claim: %w", ErrTokenMalformed)
	}

	return &AuthUser{
		Subject: subject,
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	if v, ok := claims[name].(string); ok {
		return v
	}
	return ""
}
