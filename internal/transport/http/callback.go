package httptransport

import (
	"errors"
	"net/http"

	"authgate/internal/audit"
	"authgate/internal/platform/middleware"
	"authgate/pkg/sentinel"
)

// handleCallback completes the PKCE flow: claims the state, exchanges the
// code, sets the token cookies, and sends the browser back to the consumer.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// The IdP reports user-visible failures (denied consent, misconfig) by
	// redirecting here with error params instead of a code.
	if idpErr := q.Get("error"); idpErr != "" {
		reason := q.Get("error_description")
		if reason == "" {
			reason = idpErr
		}
		h.emitAudit(ctx, audit.Event{Action: audit.ActionLoginFailed, Reason: reason})
		writeError(w, http.StatusBadRequest, "authentication failed: "+reason)
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code or state")
		return
	}

	tokens, redirectURI, err := h.flow.Complete(ctx, code, state)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			h.emitAudit(ctx, audit.Event{Action: audit.ActionLoginFailed, Reason: "invalid or expired state"})
			writeError(w, http.StatusBadRequest, "invalid or expired state")
		case errors.Is(err, sentinel.ErrExchangeFailed):
			h.metrics.TokenExchangeFailed.Inc()
			h.logger.WarnContext(ctx, "token exchange failed",
				"error", err,
				"request_id", middleware.GetRequestID(ctx),
			)
			h.emitAudit(ctx, audit.Event{Action: audit.ActionLoginFailed, Reason: "token exchange failed"})
			writeError(w, http.StatusBadRequest, "token exchange failed")
		default:
			h.logger.ErrorContext(ctx, "callback failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.metrics.LoginsCompleted.Inc()
	h.emitAudit(ctx, audit.Event{Action: audit.ActionLoginCompleted})

	setCookies(w, h.issuer.Issue(tokens.AccessToken, tokens.RefreshToken))
	redirect(w, redirectURI)
}
