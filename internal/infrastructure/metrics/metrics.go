package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors used across the service
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FetchAttemptsTotal *prometheus.CounterVec
	FetchRetriesTotal  prometheus.Counter
	FetchFailuresTotal prometheus.Counter

	SyncRunsTotal      prometheus.Counter
	SyncDatesFetched   prometheus.Counter
	SyncDatesMissing   prometheus.Counter
	SyncDatesFromCache prometheus.Counter
	SyncDuration       prometheus.Histogram
	CacheEntries       prometheus.Gauge
	CachePrunedTotal   prometheus.Counter
	ConversionsTotal   *prometheus.CounterVec
	CacheStoreFailures *prometheus.CounterVec
}

// NewMetrics registers every collector on reg. A nil registerer yields
// collectors that are usable but not exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		FetchAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_source_fetch_attempts_total",
				Help: "Requests sent to the rate source, by outcome",
			},
			[]string{"outcome"},
		),

		FetchRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_source_fetch_retries_total",
				Help: "Retries scheduled after a failed rate source request",
			},
		),

		FetchFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_source_fetch_failures_total",
				Help: "Rate source requests that failed after exhausting retries",
			},
		),

		SyncRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_sync_runs_total",
				Help: "Total number of historical sync runs",
			},
		),

		SyncDatesFetched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_sync_dates_fetched_total",
				Help: "Dates resolved from the rate source during sync",
			},
		),

		SyncDatesMissing: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_sync_dates_missing_total",
				Help: "Dates left unresolved after sync",
			},
		),

		SyncDatesFromCache: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "history_sync_dates_cached_total",
				Help: "Dates served from the cache during sync",
			},
		),

		SyncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "history_sync_duration_seconds",
				Help:    "Duration of historical sync runs",
				Buckets: prometheus.DefBuckets,
			},
		),

		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rate_cache_entries",
				Help: "Number of dates currently held in the rate cache",
			},
		),

		CachePrunedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_cache_pruned_total",
				Help: "Cache entries evicted for falling outside the requested window",
			},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conversions_total",
				Help: "Conversions computed, by outcome",
			},
			[]string{"outcome"},
		),

		CacheStoreFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_store_failures_total",
				Help: "Failed persistent store operations",
			},
			[]string{"operation"},
		),
	}
}

// NewNopMetrics returns unregistered collectors for tests and tools
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
