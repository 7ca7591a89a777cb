package httptransport

import (
	"net/http"
	"net/url"

	"authgate/internal/audit"
)

// handleLogout clears the session cookies and sends the browser through the
// IdP's logout endpoint. The IdP is given the gateway's own /logout/callback
// as the return target; the IdP cannot be trusted to forward arbitrary
// consumer query parameters verbatim, so the consumer's return_to rides on
// the gateway hop instead.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnTo := r.URL.Query().Get("return_to")

	if err := h.flow.ValidateRedirect(returnTo); err != nil {
		writeError(w, http.StatusBadRequest, "invalid return_to")
		return
	}

	h.emitAudit(ctx, audit.Event{Action: audit.ActionLogout})

	setCookies(w, h.issuer.Clear())

	q := url.Values{}
	q.Set("client_id", h.idpCfg.ClientID)
	q.Set("returnTo", h.logoutCallbackURL(returnTo))

	redirect(w, "https://"+h.idpCfg.Domain+"/v2/logout?"+q.Encode())
}

// handleLogoutCallback is the second hop: the IdP has ended its session and
// sent the browser back here, carrying the original return_to untouched.
func (h *Handler) handleLogoutCallback(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("return_to")
	// Re-validate: the value round-tripped through the IdP, treat it as
	// untrusted input again and fall back to the root on any mismatch.
	if returnTo == "" || h.flow.ValidateRedirect(returnTo) != nil {
		returnTo = "/"
	}
	redirect(w, returnTo)
}
