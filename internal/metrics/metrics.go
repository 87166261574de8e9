package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used with EventsDropped.
const (
	DropReasonInvalid = "invalid"
	DropReasonFull    = "buffer_full"
	DropReasonClosed  = "closed"
	DropReasonPanic   = "panic"
	DropReasonRetries = "retries_exhausted"
)

var (
	// Ingestion
	EventsTracked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Total number of events accepted into the ingestion buffer",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_dropped_total",
			Help: "Total number of events discarded before persistence",
		},
		[]string{"reason"},
	)

	MetadataTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_metadata_truncated_total",
			Help: "Total number of events whose metadata exceeded the size cap",
		},
	)

	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_buffer_size",
			Help: "Current number of events waiting to be flushed",
		},
	)

	// Flushing
	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_flush_duration_seconds",
			Help:    "Duration of flush operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_flush_batch_size",
			Help:    "Number of events persisted per flush",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)

	FlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_flush_failures_total",
			Help: "Total number of failed store writes during flush",
		},
	)

	EventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_persisted_total",
			Help: "Total number of events written to the event store",
		},
	)

	EventsDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_dead_lettered_total",
			Help: "Total number of events handed to the dead-letter queue",
		},
	)

	EventsReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_replayed_total",
			Help: "Total number of dead-lettered events written back to the event store",
		},
	)

	// Result cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Total number of analytics result cache hits",
		},
		[]string{"kind"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Total number of analytics result cache misses",
		},
		[]string{"kind"},
	)

	// Background jobs
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_job_runs_total",
			Help: "Total number of background job runs",
		},
		[]string{"job", "status"},
	)
)
