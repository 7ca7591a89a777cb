package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsExpiringSoon reports whether the token's exp claim is within threshold of
// now. The payload is decoded without verifying the signature: the answer is
// only used to decide whether to attempt a refresh, never to authorize a
// request. An undecodable token or a missing exp claim returns true —
// fail-open toward refreshing, fail-closed toward trusting.
func IsExpiringSoon(tokenString string, threshold time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < threshold
}
