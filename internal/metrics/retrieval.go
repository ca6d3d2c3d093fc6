package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing, search and rerank Prometheus metrics.
var (
	IndexedPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_points_total",
			Help:      "Points processed by the indexing pipeline",
		},
		[]string{"kind", "status"}, // "ok" / "failed"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Vector index search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind", "status"},
	)

	RerankOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_outcomes_total",
			Help:      "Rerank calls by outcome",
		},
		[]string{"outcome"}, // "reranked" / "fallback"
	)

	NATSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_messages_total",
			Help:      "NATS messages handled by subject and status",
		},
		[]string{"subject", "status"},
	)
)

var registered bool

// RegisterMetrics registers embedding and retrieval metrics. Must be called once from main.
func RegisterMetrics() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		IndexedPointsTotal,
		SearchDuration,
		RerankOutcomesTotal,
		NATSMessagesTotal,
	)
	registered = true
}
