// Package metrics exposes Prometheus collectors for the progress,
// recommendation and search components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Result cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_cache_evictions_total",
			Help: "Total number of expired entries evicted on read",
		},
		[]string{"cache"},
	)

	// Persistence
	StorageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_storage_failures_total",
			Help: "Persistence failures swallowed by the stores",
		},
		[]string{"store", "operation"}, // operation: load, save, parse, encode, remove
	)

	// Catalog
	CatalogErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "practicum_catalog_errors_total",
			Help: "Catalog listing failures that degraded to empty results",
		},
	)

	// Engines
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_recommendations_served_total",
			Help: "Recommendation lists returned, by kind",
		},
		[]string{"kind"}, // personal, related, path
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "practicum_search_queries_total",
			Help: "Search requests handled",
		},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "practicum_search_results",
			Help:    "Number of results returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// Progress events
	ProgressEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_progress_events_total",
			Help: "Progress events observed, by type",
		},
		[]string{"type"},
	)

	EventDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practicum_event_deliveries_total",
			Help: "Progress events handed to the broker, by outcome",
		},
		[]string{"outcome"}, // published, failed, dropped
	)
)

// RecordStorageFailure increments the storage failure counter
func RecordStorageFailure(store, operation string) {
	StorageFailures.WithLabelValues(store, operation).Inc()
}

// RecordEvent increments the progress event counter
func RecordEvent(eventType string) {
	ProgressEvents.WithLabelValues(eventType).Inc()
}

// RecordDelivery increments the broker delivery counter
func RecordDelivery(outcome string) {
	EventDeliveries.WithLabelValues(outcome).Inc()
}
