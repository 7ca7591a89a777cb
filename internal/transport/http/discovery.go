package httptransport

import "net/http"

// handleAuthConfig publishes the verification parameters consumers need to
// verify tokens locally. These are not secrets; the endpoint is deliberately
// unauthenticated.
func (h *Handler) handleAuthConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"domain":   h.idpCfg.Domain,
		"audience": h.idpCfg.Audience,
	})
}

// handleHealth is the liveness probe.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
