package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog metrics
	SchemasTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lattice_schemas_total",
			Help: "Total number of schemas in the catalog",
		},
	)

	EntitiesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lattice_entities_total",
			Help: "Total number of entities in the catalog",
		},
	)

	TuplesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lattice_tuples_total",
			Help: "Tuple count per entity",
		},
		[]string{"entity"},
	)

	IndexesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lattice_indexes_total",
			Help: "Total number of indexes by state",
		},
		[]string{"state"},
	)

	// Transaction metrics
	TxCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_tx_commits_total",
			Help: "Total number of committed transactions",
		},
	)

	TxRollbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_tx_rollbacks_total",
			Help: "Total number of rolled-back transactions",
		},
	)

	TxDeadlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_tx_deadlocks_total",
			Help: "Total number of deadlock aborts",
		},
	)

	TxActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lattice_tx_active",
			Help: "Number of currently running transactions",
		},
	)

	TxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lattice_tx_duration_seconds",
			Help:    "Transaction lifetime from RUNNING to finalize",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Index metrics
	IndexRebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lattice_index_rebuild_duration_seconds",
			Help:    "Time spent rebuilding an index",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	IndexFilterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lattice_index_filter_duration_seconds",
			Help:    "Time spent evaluating an index filter",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	// Planner metrics
	PlanCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_plan_cache_hits_total",
			Help: "Plan cache hits",
		},
	)

	PlanCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_plan_cache_misses_total",
			Help: "Plan cache misses",
		},
	)

	PlanningDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lattice_planning_duration_seconds",
			Help:    "Time spent exploring rewrites and selecting a physical plan",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlanningFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_planning_failures_total",
			Help: "Planning attempts with no executable candidate",
		},
	)

	// Execution metrics
	OperatorRowsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_operator_rows_emitted_total",
			Help: "Rows emitted per operator kind",
		},
		[]string{"operator"},
	)

	// Statistics scrubber metrics
	StatsScrubCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_stats_scrub_cycles_total",
			Help: "Statistics scrubber cycles run",
		},
	)

	StatsScrubDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lattice_stats_scrub_duration_seconds",
			Help:    "Time spent in one statistics scrub cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatsScrubRecomputedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_stats_scrub_recomputed_total",
			Help: "Columns whose statistics were recomputed by the scrubber",
		},
	)

	// Rebuild scheduler metrics
	RebuildScheduleCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_rebuild_schedule_cycles_total",
			Help: "Index rebuild scheduler cycles run",
		},
	)

	RebuildScheduledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lattice_rebuild_scheduled_total",
			Help: "Indexes transitioned STALE -> rebuild by the scheduler",
		},
	)

	// RPC boundary metrics
	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lattice_rpc_request_duration_seconds",
			Help:    "Time spent in one rpc.Service call, from transaction resolution to commit/rollback",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	RPCRequestsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lattice_rpc_requests_failed_total",
			Help: "rpc.Service calls that returned an error, by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		SchemasTotal,
		EntitiesTotal,
		TuplesTotal,
		IndexesTotal,
		TxCommitsTotal,
		TxRollbacksTotal,
		TxDeadlocksTotal,
		TxActive,
		TxDuration,
		IndexRebuildDuration,
		IndexFilterDuration,
		PlanCacheHitsTotal,
		PlanCacheMissesTotal,
		PlanningDuration,
		PlanningFailuresTotal,
		OperatorRowsEmittedTotal,
		StatsScrubCyclesTotal,
		StatsScrubDuration,
		StatsScrubRecomputedTotal,
		RebuildScheduleCyclesTotal,
		RebuildScheduledTotal,
		RPCRequestDuration,
		RPCRequestsFailedTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
