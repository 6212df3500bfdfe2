package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationAttemptsTotal tracks generation attempts by outcome
	GenerationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_generation_attempts_total",
			Help: "Total number of generation attempts",
		},
		[]string{"outcome"},
	)

	// GenerationFallbacksTotal tracks degraded responses served after exhaustion
	GenerationFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_generation_fallbacks_total",
			Help: "Total number of fallback responses served",
		},
		[]string{"reason"},
	)

	// RetryAttemptsTotal tracks retries issued by the backoff executor
	RetryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"operation"},
	)

	// RetryDeadlineCutoffsTotal tracks global-timeout cutoffs
	RetryDeadlineCutoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_retry_deadline_cutoffs_total",
			Help: "Total number of retries abandoned because the global deadline elapsed",
		},
		[]string{"operation"},
	)

	// BatchRoundsTotal tracks rounds run by the parallel batch executor
	BatchRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_batch_rounds_total",
			Help: "Total number of batch retry rounds executed",
		},
		[]string{"operation"},
	)

	// MediaDescriptionsTotal tracks media description results by kind
	MediaDescriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_media_descriptions_total",
			Help: "Total number of media descriptions produced",
		},
		[]string{"kind", "outcome"},
	)

	// ProviderCallsTotal tracks upstream model calls per provider
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_provider_calls_total",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks upstream call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genflow_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// FailedGenerationQueueDepth tracks the depth of the failed-generation journal
	FailedGenerationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_failed_generation_queue_depth",
			Help: "Number of exhausted generations waiting in the journal",
		},
	)

	// DBConnectionPoolUsage tracks connection pool utilization percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_db_connection_pool_usage_percent",
			Help: "Percentage of database connections in use",
		},
	)
)
