package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	LoginsStarted       prometheus.Counter
	LoginsCompleted     prometheus.Counter
	TokenExchangeFailed prometheus.Counter
	TokensRefreshed     prometheus.Counter
	RefreshFailed       prometheus.Counter
	RequestDurationMs   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry so
// repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_logins_started_total",
			Help: "Total number of authorization flows started",
		}),
		LoginsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_logins_completed_total",
			Help: "Total number of authorization flows completed via callback",
		}),
		TokenExchangeFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_token_exchange_failed_total",
			Help: "Total number of IdP code exchanges that failed",
		}),
		TokensRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_tokens_refreshed_total",
			Help: "Total number of successful access token refreshes",
		}),
		RefreshFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_refresh_failed_total",
			Help: "Total number of refresh attempts rejected or failed at the IdP",
		}),
		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authgate_request_duration_ms",
			Help:    "Latency of gateway HTTP requests in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
	}
}
