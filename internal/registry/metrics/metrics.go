// Package metrics provides Prometheus metrics for registry operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all registry client metrics.
type Metrics struct {
	WritesTotal   *prometheus.CounterVec // Writes by operation (store_initial, update) and outcome
	VerifiesTotal *prometheus.CounterVec // Verify calls by outcome (valid, invalid, error)

	LedgerCallDurationSeconds *prometheus.HistogramVec // Ledger call latency by operation
	LedgerRetriesTotal        *prometheus.CounterVec   // Transient-failure retries by operation

	VerifyCacheHitsTotal   prometheus.Counter
	VerifyCacheMissesTotal prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		WritesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docseal_registry_writes_total",
			Help: "Total registry write operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		VerifiesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docseal_registry_verifies_total",
			Help: "Total registry verify calls by outcome",
		}, []string{"outcome"}),

		LedgerCallDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docseal_ledger_call_duration_seconds",
			Help:    "Duration of ledger node calls by operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		LedgerRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docseal_ledger_retries_total",
			Help: "Total retried ledger calls after transient failures",
		}, []string{"operation"}),

		VerifyCacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docseal_verify_cache_hits_total",
			Help: "Total verify results served from cache",
		}),

		VerifyCacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docseal_verify_cache_misses_total",
			Help: "Total verify calls that missed the cache",
		}),
	}
}

// RecordWrite records a write operation outcome.
func (m *Metrics) RecordWrite(operation, outcome string) {
	m.WritesTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordVerify records a verify call outcome.
func (m *Metrics) RecordVerify(outcome string) {
	m.VerifiesTotal.WithLabelValues(outcome).Inc()
}

// ObserveLedgerCall records the duration of a ledger node call.
func (m *Metrics) ObserveLedgerCall(operation string, seconds float64) {
	m.LedgerCallDurationSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordRetry records a retried ledger call.
func (m *Metrics) RecordRetry(operation string) {
	m.LedgerRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordCacheHit records a verify cache hit.
func (m *Metrics) RecordCacheHit() { m.VerifyCacheHitsTotal.Inc() }

// RecordCacheMiss records a verify cache miss.
func (m *Metrics) RecordCacheMiss() { m.VerifyCacheMissesTotal.Inc() }
