// Package httptransport is the thin HTTP layer of the gateway. Handlers
// delegate to the flow service and IdP client; protocol rules live there,
// transport concerns stay here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authgate/internal/audit"
	"authgate/internal/cookies"
	"authgate/internal/flow/models"
	"authgate/internal/idp"
	"authgate/internal/platform/config"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/middleware"
)

// FlowService drives the PKCE authorization flow.
type FlowService interface {
	Begin(ctx context.Context, provider, redirectURI string) (string, error)
	Complete(ctx context.Context, code, state string) (models.TokenPair, string, error)
	ValidateRedirect(redirectURI string) error
}

// TokenRefresher performs the refresh-token grant at the IdP.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*idp.TokenResponse, error)
}

// AuditPublisher records security events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler handles all gateway endpoints.
type Handler struct {
	logger    *slog.Logger
	flow      FlowService
	refresher TokenRefresher
	issuer    *cookies.Issuer
	metrics   *metrics.Metrics
	audit     AuditPublisher
	idpCfg    config.IdP
	publicURL string
	providers []string
}

// New creates the gateway Handler.
func New(
	flow FlowService,
	refresher TokenRefresher,
	issuer *cookies.Issuer,
	logger *slog.Logger,
	m *metrics.Metrics,
	auditPub AuditPublisher,
	idpCfg config.IdP,
	publicURL string,
	providers []string,
) *Handler {
	return &Handler{
		logger:    logger,
		flow:      flow,
		refresher: refresher,
		issuer:    issuer,
		metrics:   m,
		audit:     auditPub,
		idpCfg:    idpCfg,
		publicURL: publicURL,
		providers: providers,
	}
}

// NewRouter wires the full gateway HTTP surface.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(h.logger))
	r.Use(CORS(allowedOrigins))

	r.With(middleware.Latency(h.metrics, "login")).Get("/login", h.handleLoginPage)
	r.With(middleware.Latency(h.metrics, "login_provider")).Get("/login/{provider}", h.handleLoginProvider)
	r.With(middleware.Latency(h.metrics, "callback")).Get("/callback", h.handleCallback)
	r.With(middleware.Latency(h.metrics, "token_refresh")).Post("/token/refresh", h.handleTokenRefresh)
	r.With(middleware.Latency(h.metrics, "logout")).Get("/logout", h.handleLogout)
	r.With(middleware.Latency(h.metrics, "logout")).Post("/logout", h.handleLogout)
	r.Get("/logout/callback", h.handleLogoutCallback)
	r.Get("/auth/config", h.handleAuthConfig)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// emitAudit fills request-scoped fields and hands the event to the publisher.
// Audit failures are logged, never surfaced to the user.
func (h *Handler) emitAudit(ctx context.Context, event audit.Event) {
	event.ClientIP = middleware.GetClientIP(ctx)
	event.UserAgent = middleware.GetUserAgent(ctx)
	event.RequestID = middleware.GetRequestID(ctx)
	if event.Category == "" {
		event.Category = audit.CategorySecurity
	}
	if err := h.audit.Emit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", event.Action,
		)
	}
}

// logoutCallbackURL builds the intermediate logout hop carrying return_to.
func (h *Handler) logoutCallbackURL(returnTo string) string {
	u := h.publicURL + "/logout/callback"
	if returnTo != "" {
		u += "?return_to=" + url.QueryEscape(returnTo)
	}
	return u
}

func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}
