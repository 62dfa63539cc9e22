package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usemiddleman/middleman/config"
)

// Metrics contains all metric groups
type Metrics struct {
	HTTP        *HTTPMetrics
	Indexer     *IndexerMetrics
	ExternalAPI *ExternalAPIMetrics
	Health      *HealthMetrics
}

type group interface {
	Register(reg *prometheus.Registry)
}

var (
	// Global registry and metrics
	registry *prometheus.Registry
	metrics  *Metrics

	// Singleton initialization
	initOnce sync.Once

	// Chain identifier for metrics labeling
	chainIdLabel string
)

// constLabels returns the constant labels to be added to all metrics
func constLabels() prometheus.Labels {
	if chainIdLabel == "" {
		return nil
	}
	return prometheus.Labels{"chain_id": chainIdLabel}
}

// MetricsServer represents the Prometheus metrics HTTP server
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
	cfg    *config.MetricsConfig
}

// Init initializes the Prometheus metrics registry and registers all metrics
// This function is safe to call multiple times - it will only initialize once
// chainId is used as the chain_id label value for all metrics
func Init(chainId string) {
	initOnce.Do(func() {
		chainIdLabel = chainId
		registry = prometheus.NewRegistry()

		metrics = &Metrics{
			HTTP:        NewHTTPMetrics(),
			Indexer:     NewIndexerMetrics(),
			ExternalAPI: NewExternalAPIMetrics(),
			Health:      NewHealthMetrics(),
		}
		for _, g := range []group{metrics.HTTP, metrics.Indexer, metrics.ExternalAPI, metrics.Health} {
			g.Register(registry)
		}

		// Add Go runtime metrics
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// NewServer creates a new metrics server
func NewServer(cfg *config.Config, logger *slog.Logger) *MetricsServer {
	metricsConfig := cfg.GetMetricsConfig()

	// Ensure metrics subsystem is initialized
	Init(cfg.GetChainId())

	mux := http.NewServeMux()
	mux.Handle(metricsConfig.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:              ":" + metricsConfig.Port,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return &MetricsServer{
		server: server,
		logger: logger.With("component", "metrics"),
		cfg:    metricsConfig,
	}
}

// Start starts the metrics server
func (m *MetricsServer) Start() error {
	if !m.cfg.Enabled {
		m.logger.Info("metrics server disabled")
		return nil
	}

	m.logger.Info("starting metrics server",
		slog.String("addr", m.server.Addr),
		slog.String("path", m.cfg.Path))

	return m.server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if !m.cfg.Enabled {
		return nil
	}

	m.logger.Info("shutting down metrics server")
	return m.server.Shutdown(ctx)
}

// GetMetrics returns the global metrics instance. Library code may record
// metrics before the CLI wires a server, so the registry is created on demand.
func GetMetrics() *Metrics {
	Init(chainIdLabel)
	return metrics
}

// Registry exposes the registry for tests and custom exporters.
func Registry() *prometheus.Registry {
	Init(chainIdLabel)
	return registry
}
