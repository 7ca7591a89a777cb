// Package cookies serializes token pairs into browser cookies. The cookie
// policy is fixed: the access token rides on every request, the refresh token
// only reaches the refresh endpoint, so a leaked access-token cookie cannot
// be replayed to mint new tokens.
package cookies

import (
	"errors"
	"net/http"
	"time"
)

const (
	// AccessTokenName is the cookie carrying the short-lived access token.
	AccessTokenName = "access_token"
	// RefreshTokenName is the cookie carrying the long-lived refresh token.
	RefreshTokenName = "refresh_token"

	// RefreshPath restricts where the browser sends the refresh token.
	RefreshPath = "/token"

	accessTokenMaxAge  = int(time.Hour / time.Second)
	refreshTokenMaxAge = int(30 * 24 * time.Hour / time.Second)
)

// ErrInsecureSameSiteNone rejects the one cookie configuration the design
// forbids: SameSite=None requires the Secure attribute.
var ErrInsecureSameSiteNone = errors.New("cookies: SameSite=None requires Secure")

// Issuer builds the two token cookies with fixed scope, lifetime, and
// security attributes. Attributes are not configurable per call.
type Issuer struct {
	secure bool
}

// New constructs an Issuer. secure=false is rejected outright because every
// cookie here is SameSite=None (consumers live on other origins).
func New(secure bool) (*Issuer, error) {
	if !secure {
		return nil, ErrInsecureSameSiteNone
	}
	return &Issuer{secure: secure}, nil
}

// Issue returns the Set-Cookie pair for a fresh token pair.
func (i *Issuer) Issue(accessToken, refreshToken string) []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     AccessTokenName,
			Value:    accessToken,
			Path:     "/",
			MaxAge:   accessTokenMaxAge,
			HttpOnly: true,
			Secure:   i.secure,
			SameSite: http.SameSiteNoneMode,
		},
		{
			Name:     RefreshTokenName,
			Value:    refreshToken,
			Path:     RefreshPath,
			MaxAge:   refreshTokenMaxAge,
			HttpOnly: true,
			Secure:   i.secure,
			SameSite: http.SameSiteNoneMode,
		},
	}
}

// Clear returns the Set-Cookie pair that deletes both token cookies. The
// paths must match Issue exactly or browsers keep the originals.
func (i *Issuer) Clear() []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     AccessTokenName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   i.secure,
			SameSite: http.SameSiteNoneMode,
		},
		{
			Name:     RefreshTokenName,
			Value:    "",
			Path:     RefreshPath,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   i.secure,
			SameSite: http.SameSiteNoneMode,
		},
	}
}
