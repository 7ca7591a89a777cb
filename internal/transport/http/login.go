package httptransport

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"authgate/internal/audit"
	"authgate/pkg/sentinel"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Sign in</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background: #f5f5f5; }
.container { background: white; padding: 2rem; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); text-align: center; max-width: 400px; width: 100%; }
h1 { margin-bottom: 1.5rem; color: #333; }
.btn { display: block; width: 100%; padding: 0.75rem; margin: 0.5rem 0; border: 1px solid #ddd; border-radius: 6px; background: white; font-size: 1rem; text-decoration: none; color: #333; }
.btn:hover { background: #f0f0f0; }
</style>
</head>
<body>
<div class="container">
<h1>Sign in</h1>
{{range .Providers}}<a class="btn" href="{{.Href}}">Continue with {{.Label}}</a>
{{end}}</div>
</body>
</html>
`))

type providerLink struct {
	Label string
	Href  string
}

// handleLoginPage renders the provider chooser. The redirect_uri is validated
// up front so the user sees the failure before picking a provider.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if err := h.flow.ValidateRedirect(redirectURI); err != nil {
		writeError(w, http.StatusBadRequest, "invalid redirect_uri")
		return
	}

	links := make([]providerLink, 0, len(h.providers))
	for _, p := range h.providers {
		href := "/login/" + p
		if redirectURI != "" {
			href += "?redirect_uri=" + url.QueryEscape(redirectURI)
		}
		links = append(links, providerLink{
			Label: strings.ToUpper(p[:1]) + p[1:],
			Href:  href,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPage.Execute(w, map[string]any{"Providers": links}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render login page", "error", err)
	}
}

// handleLoginProvider begins the PKCE flow and bounces the browser to the IdP.
func (h *Handler) handleLoginProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	redirectURI := r.URL.Query().Get("redirect_uri")

	authorizeURL, err := h.flow.Begin(ctx, provider, redirectURI)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidRedirect):
			writeError(w, http.StatusBadRequest, "invalid redirect_uri")
		case errors.Is(err, sentinel.ErrUnsupportedProvider):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported provider %q", provider))
		default:
			h.logger.ErrorContext(ctx, "failed to begin login flow",
				"error", err,
				"provider", provider,
			)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.metrics.LoginsStarted.Inc()
	h.emitAudit(ctx, audit.Event{Action: audit.ActionLoginStarted, Provider: provider})

	redirect(w, authorizeURL)
}
