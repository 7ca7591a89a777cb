package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

type userContextKey struct{}

// UserFromContext retrieves the authenticated user attached by the
// middleware, if any.
func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	return user, ok
}

// WithUser attaches a user to the context. Exported for consumer tests.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// DefaultRefreshThreshold is how close to expiry an access token must be
// before the middleware attempts a silent refresh.
const DefaultRefreshThreshold = 60 * time.Second

// Middleware authenticates inbound requests, transparently refreshing
// near-expiry access tokens through the gateway first. Refresh failures are
// swallowed: the request proceeds under the original token, and only a
// subsequent verification failure leaves it unauthenticated.
type Middleware struct {
	gatewayURL string
	provider   Provider
	httpClient *http.Client
	threshold  time.Duration
}

// MiddlewareOption configures the silent-refresh middleware.
type MiddlewareOption func(*Middleware)

// WithRefreshThreshold overrides the near-expiry window.
func WithRefreshThreshold(threshold time.Duration) MiddlewareOption {
	return func(m *Middleware) {
		m.threshold = threshold
	}
}

// WithRefreshHTTPClient overrides the HTTP client used to call the gateway.
func WithRefreshHTTPClient(hc *http.Client) MiddlewareOption {
	return func(m *Middleware) {
		m.httpClient = hc
	}
}

// NewMiddleware builds the silent-refresh middleware for one gateway and one
// verification provider.
func NewMiddleware(gatewayURL string, provider Provider, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		provider:   provider,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		threshold:  DefaultRefreshThreshold,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Handler wraps next so every request carries the authenticated user in its
// context when (and only when) a token verifies.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifyReq := r

		accessToken := CookieToken(r, AccessTokenCookie)
		if accessToken != "" && IsExpiringSoon(accessToken, m.threshold) {
			if refreshed := m.refresh(w, r); refreshed != nil {
				verifyReq = refreshed
			}
			// On refresh failure verifyReq stays r: fall through to normal
			// verification under the original, possibly expiring token.
		}

		user, err := m.provider.UserFromRequest(verifyReq.Context(), verifyReq)
		if err == nil && user != nil {
			verifyReq = verifyReq.WithContext(WithUser(verifyReq.Context(), user))
		}

		next.ServeHTTP(w, verifyReq)
	})
}

// refresh calls the gateway's refresh endpoint, forwards the resulting
// Set-Cookie headers to the browser, and returns a clone of r carrying the
// new access token. Returns nil on any failure.
func (m *Middleware) refresh(w http.ResponseWriter, r *http.Request) *http.Request {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, m.gatewayURL+"/token/refresh", nil)
	if err != nil {
		return nil
	}
	// Forward the original Cookie header; the refresh-token cookie is
	// path-scoped so only the gateway's /token endpoints ever receive it.
	if cookieHeader := r.Header.Get("Cookie"); cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.AccessToken == "" {
		return nil
	}

	// Advance the browser's session: the gateway's Set-Cookie headers ride
	// out on our response.
	for _, setCookie := range resp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", setCookie)
	}

	return requestWithCookie(r, AccessTokenCookie, body.AccessToken)
}

// requestWithCookie clones r with the named cookie replaced (or added) in
// its Cookie header, leaving the original request untouched.
func requestWithCookie(r *http.Request, name, value string) *http.Request {
	clone := r.Clone(r.Context())

	replaced := false
	parts := make([]string, 0, 4)
	for _, ck := range r.Cookies() {
		if ck.Name == name {
			parts = append(parts, name+"="+value)
			replaced = true
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	if !replaced {
		parts = append(parts, name+"="+value)
	}

	clone.Header.Set("Cookie", strings.Join(parts, "; "))
	return clone
}
