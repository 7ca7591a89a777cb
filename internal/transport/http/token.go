package httptransport

import (
	"errors"
	"net/http"

	"authgate/internal/audit"
	"authgate/internal/cookies"
	"authgate/internal/idp"
	"authgate/pkg/sentinel"
)

// handleTokenRefresh rotates the access token using the refresh-token cookie.
// The cookie is path-scoped to /token, so only this endpoint ever sees it.
func (h *Handler) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refreshCookie, err := r.Cookie(cookies.RefreshTokenName)
	if err != nil || refreshCookie.Value == "" {
		// The IdP is never contacted without a refresh token.
		h.metrics.RefreshFailed.Inc()
		writeError(w, http.StatusUnauthorized, sentinel.ErrMissingRefreshToken.Error())
		return
	}

	tokens, err := h.refresher.Refresh(ctx, refreshCookie.Value)
	if err != nil {
		h.metrics.RefreshFailed.Inc()
		h.emitAudit(ctx, audit.Event{Action: audit.ActionRefreshFailed, Reason: err.Error()})

		var idpErr *idp.Error
		if errors.As(err, &idpErr) {
			writeError(w, http.StatusUnauthorized, idpErr.Error())
			return
		}
		h.logger.ErrorContext(ctx, "token refresh failed", "error", err)
		writeError(w, http.StatusUnauthorized, "token refresh failed")
		return
	}

	// Rotate the refresh token when the IdP returned a new one, otherwise
	// keep extending the current one.
	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		refreshToken = refreshCookie.Value
	}

	h.metrics.TokensRefreshed.Inc()
	h.emitAudit(ctx, audit.Event{
		Action:   audit.ActionTokenRefreshed,
		Category: audit.CategoryOperations,
	})

	setCookies(w, h.issuer.Issue(tokens.AccessToken, refreshToken))
	writeJSON(w, http.StatusOK, map[string]string{"access_token": tokens.AccessToken})
}
