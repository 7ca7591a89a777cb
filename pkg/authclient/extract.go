package authclient

import (
	"net/http"
	"strings"
)

// BearerToken pulls a token from the Authorization header, or "" if absent.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return authHeader[len(prefix):]
}

// CookieToken pulls a token from the named cookie, or "" if absent.
func CookieToken(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
