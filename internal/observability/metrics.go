package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// Mutations counts successful domain writes.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_mutations_total",
		Help: "Total number of successful domain mutations",
	}, []string{"entity", "op"})

	// ViewInvalidations counts invalidated view paths.
	ViewInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_view_invalidations_total",
		Help: "Total number of view paths marked stale",
	})

	// ViewCacheLookups counts cached view reads by result (hit, miss).
	ViewCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_view_cache_lookups_total",
		Help: "Cached view lookups by result",
	}, []string{"result"})
)

// DatabaseMetrics records query latency for one table.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
	}
}

// RecordMutation increments the mutation counter.
func RecordMutation(entity, op string) {
	Mutations.WithLabelValues(entity, op).Inc()
}
