package sentinel

import "errors"

// Sentinel errors for protocol and infrastructure facts. Stores and clients
// return these (optionally wrapped) so handlers can translate them into HTTP
// responses without string matching.
//
// These represent factual states, not validation failures:
// - ErrNotFound: entry does not exist in store, expired, or already consumed
// - ErrInvalidRedirect: redirect/return URI is not on the allow-list
// - ErrUnsupportedProvider: provider name has no IdP connection mapping
// - ErrInvalidState: login state is unknown, expired, or already consumed;
//   terminal for the attempt, the browser must restart /login
// - ErrExchangeFailed: the IdP rejected a code exchange
// - ErrMissingRefreshToken: refresh was called without a refresh_token cookie
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRedirect     = errors.New("invalid redirect uri")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrInvalidState        = errors.New("invalid or expired state")
	ErrExchangeFailed      = errors.New("token exchange failed")
	ErrMissingRefreshToken = errors.New("missing refresh token")
)
