// Package authclient is the consumer side of the authentication gateway.
// Applications import it to verify gateway-issued tokens locally against the
// IdP's JWKS, discover verification parameters from the gateway, and keep
// sessions alive with transparent silent refresh.
package authclient

import "errors"

// AuthUser is the canonical identity extracted from a verified token. Each
// consumer maps Subject to its own local user record; the gateway owns no
// notion of "user".
type AuthUser struct {
	Subject string
	Email   string
	Name    string
}

// Config carries the verification parameters published by the gateway's
// discovery endpoint.
type Config struct {
	Domain   string `json:"domain"`
	Audience string `json:"audience"`
}

var (
	// ErrNoToken means the request carried no token at all. Distinct from
	// ErrTokenInvalid so callers can tell "anonymous" from "forged".
	ErrNoToken = errors.New("no token provided")

	// ErrTokenInvalid covers every verification failure: bad signature, wrong
	// algorithm, wrong issuer or audience, expired. Callers must treat it
	// identically to "unauthenticated" with no partial trust.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenMalformed means the token verified but lacks required claims.
	ErrTokenMalformed = errors.New("token malformed")
)
