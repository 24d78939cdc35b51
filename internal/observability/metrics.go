// Package observability provides tracing and Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by command.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records latency of ledger and aggregate transactions.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusqa_database_query_latency_seconds",
		Help:    "Database operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReputationEvents counts ledger events applied, by kind.
	ReputationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_reputation_events_total",
		Help: "Reputation ledger events applied by kind",
	}, []string{"kind"})

	// LedgerConflicts counts accept/like transactions that lost a race.
	LedgerConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_ledger_conflicts_total",
		Help: "Ledger transactions retried or rejected because of a concurrent writer",
	}, []string{"operation"})

	// ReconciledUsers counts user projections rewritten by reconciliation.
	ReconciledUsers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusqa_reconciled_users_total",
		Help: "User reputation projections corrected by the reconciliation job",
	})

	// AuthEvents counts authentication outcomes (login_ok, login_failed, refresh_ok, refresh_failed, logout).
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_auth_events_total",
		Help: "Authentication lifecycle events by outcome",
	}, []string{"event"})

	// CacheLookups counts cache-aside hits and misses per key family.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusqa_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})
)

// TrackQuery returns a function that records operation latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
