package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthMetrics covers failures that do not belong to a single request:
// LCD endpoint health, cache effectiveness and recovered worker panics.
type HealthMetrics struct {
	ErrorsTotal    *prometheus.CounterVec
	PanicsTotal    *prometheus.CounterVec
	EndpointHealth *prometheus.GaugeVec
	CacheLookups   *prometheus.CounterVec
}

func NewHealthMetrics() *HealthMetrics {
	return &HealthMetrics{
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_errors_total",
				Help:        "Errors by component and kind",
				ConstLabels: constLabels(),
			},
			[]string{"component", "error_type"},
		),
		PanicsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_recovered_panics_total",
				Help:        "Panics recovered in worker goroutines",
				ConstLabels: constLabels(),
			},
			[]string{"component"},
		),
		EndpointHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "middleman_lcd_endpoint_healthy",
				Help:        "LCD endpoint circuit state (1=closed, 0=open)",
				ConstLabels: constLabels(),
			},
			[]string{"endpoint"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_cache_lookups_total",
				Help:        "Cache lookups by cache and result",
				ConstLabels: constLabels(),
			},
			[]string{"cache", "result"},
		),
	}
}

func (h *HealthMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(h.ErrorsTotal, h.PanicsTotal, h.EndpointHealth, h.CacheLookups)
}

func TrackError(component, errorType string) {
	GetMetrics().Health.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func SetEndpointHealth(endpoint string, healthy bool) {
	var v float64
	if healthy {
		v = 1
	}
	GetMetrics().Health.EndpointHealth.WithLabelValues(endpoint).Set(v)
}

// CacheObserver returns a hit/miss callback for the named cache.
func CacheObserver(name string) func(hit bool) {
	hits := GetMetrics().Health.CacheLookups.WithLabelValues(name, "hit")
	misses := GetMetrics().Health.CacheLookups.WithLabelValues(name, "miss")
	return func(hit bool) {
		if hit {
			hits.Inc()
			return
		}
		misses.Inc()
	}
}

// RecoverError turns a panic in a worker goroutine into an error on *errp.
// Call it deferred.
func RecoverError(component string, errp *error) {
	if r := recover(); r != nil {
		GetMetrics().Health.PanicsTotal.WithLabelValues(component).Inc()
		*errp = fmt.Errorf("%s: recovered panic: %v", component, r)
	}
}
