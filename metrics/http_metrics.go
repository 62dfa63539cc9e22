package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPLatencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// HTTPMetrics groups metrics of the GraphQL proxy server
type HTTPMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Upstream failures surfaced as 502
	UpstreamErrorsTotal prometheus.Counter
}

// NewHTTPMetrics creates and returns HTTP metrics
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_proxy_requests_total",
				Help:        "Total number of proxy HTTP requests",
				ConstLabels: constLabels(),
			},
			[]string{"method", "handler", "status_class"}, // status_class: 2xx, 3xx, 4xx, 5xx
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "middleman_proxy_request_duration_seconds",
				Help:        "Proxy HTTP request duration in seconds",
				Buckets:     HTTPLatencyBuckets,
				ConstLabels: constLabels(),
			},
			[]string{"method", "handler"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "middleman_proxy_requests_in_flight",
				Help:        "Number of proxy requests currently being processed",
				ConstLabels: constLabels(),
			},
		),
		UpstreamErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "middleman_proxy_upstream_errors_total",
				Help:        "Total number of upstream failures answered with 502",
				ConstLabels: constLabels(),
			},
		),
	}
}

// Register registers all HTTP metrics with the given registry
func (h *HTTPMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		h.RequestsTotal,
		h.RequestDuration,
		h.RequestsInFlight,
		h.UpstreamErrorsTotal,
	)
}

// GetStatusClass converts HTTP status code to class (2xx, 3xx, 4xx, 5xx)
func GetStatusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}

// GetHandlerPattern converts full path to handler pattern
func GetHandlerPattern(path string) string {
	switch path {
	case "/graphql":
		return "graphql"
	case "/health":
		return "health"
	default:
		return "other"
	}
}
