// Package metrics provides Prometheus metrics for verifier sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all verifier metrics.
type Metrics struct {
	SessionsTotal        *prometheus.CounterVec // Sessions by terminal state
	DecryptAttemptsTotal *prometheus.CounterVec // Key submissions by outcome

	VerifyDurationSeconds prometheus.Histogram // End-to-end registry check latency
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docseal_verifier_sessions_total",
			Help: "Total verifier sessions by terminal state",
		}, []string{"state"}),

		DecryptAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docseal_verifier_decrypt_attempts_total",
			Help: "Total disclosure decryption attempts by outcome",
		}, []string{"outcome"}),

		VerifyDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docseal_verifier_verify_duration_seconds",
			Help:    "Duration of the registry verification step",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// RecordSession records a session reaching a terminal state.
func (m *Metrics) RecordSession(state string) {
	m.SessionsTotal.WithLabelValues(state).Inc()
}

// RecordDecryptAttempt records a key submission outcome.
func (m *Metrics) RecordDecryptAttempt(outcome string) {
	m.DecryptAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveVerify records the duration of a registry verification.
func (m *Metrics) ObserveVerify(seconds float64) {
	m.VerifyDurationSeconds.Observe(seconds)
}
