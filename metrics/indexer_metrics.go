package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	IndexerLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// IndexerMetrics groups GraphQL transport and adaptive executor metrics
type IndexerMetrics struct {
	// Transport
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PostFallbackTotal *prometheus.CounterVec

	// Executor
	ProbesTotal      *prometheus.CounterVec
	LockInsTotal     *prometheus.CounterVec
	DemotionsTotal   *prometheus.CounterVec
	ExhaustionsTotal *prometheus.CounterVec

	// Pagination and batches
	PagesFetchedTotal     *prometheus.CounterVec
	BatchGroupsTotal      *prometheus.CounterVec
	BatchKeyFailuresTotal *prometheus.CounterVec
}

// NewIndexerMetrics creates and returns indexer metrics
func NewIndexerMetrics() *IndexerMetrics {
	return &IndexerMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_graphql_requests_total",
				Help:        "Total number of GraphQL requests sent to the indexer",
				ConstLabels: constLabels(),
			},
			[]string{"method", "status_class"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "middleman_graphql_request_duration_seconds",
				Help:        "GraphQL request duration in seconds",
				Buckets:     IndexerLatencyBuckets,
				ConstLabels: constLabels(),
			},
			[]string{"method"},
		),
		PostFallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_graphql_post_fallback_total",
				Help:        "Total number of requests sent as POST instead of GET",
				ConstLabels: constLabels(),
			},
			[]string{"reason"}, // "url_too_long", "get_failed"
		),
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_variant_probes_total",
				Help:        "Total number of variant attempts by outcome",
				ConstLabels: constLabels(),
			},
			[]string{"operation", "variant", "outcome"}, // outcome: ok, transport, shape
		),
		LockInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_variant_lockins_total",
				Help:        "Total number of variant lock-ins",
				ConstLabels: constLabels(),
			},
			[]string{"operation", "variant"},
		),
		DemotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_variant_demotions_total",
				Help:        "Total number of locked variants demoted after a failure",
				ConstLabels: constLabels(),
			},
			[]string{"operation", "variant"},
		),
		ExhaustionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_variant_exhaustions_total",
				Help:        "Total number of calls where every variant failed",
				ConstLabels: constLabels(),
			},
			[]string{"operation"},
		),
		PagesFetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_pages_fetched_total",
				Help:        "Total number of pages fetched by the pagination driver",
				ConstLabels: constLabels(),
			},
			[]string{"operation"},
		),
		BatchGroupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_batch_groups_total",
				Help:        "Total number of aliased batch group queries by outcome",
				ConstLabels: constLabels(),
			},
			[]string{"kind", "outcome"}, // outcome: ok, fallback
		),
		BatchKeyFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "middleman_batch_key_failures_total",
				Help:        "Total number of keys left unresolved after individual fallback",
				ConstLabels: constLabels(),
			},
			[]string{"kind"},
		),
	}
}

// Register registers all indexer metrics with the given registry
func (i *IndexerMetrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		i.RequestsTotal,
		i.RequestDuration,
		i.PostFallbackTotal,
		i.ProbesTotal,
		i.LockInsTotal,
		i.DemotionsTotal,
		i.ExhaustionsTotal,
		i.PagesFetchedTotal,
		i.BatchGroupsTotal,
		i.BatchKeyFailuresTotal,
	)
}
