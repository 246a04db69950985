// Package metrics provides Prometheus metrics for session operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session pipeline.
type Metrics struct {
	enabled bool

	// Backend call metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// Silent refresh metrics
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	retriesTotal    prometheus.Counter

	// Session manager metrics
	operationsTotal *prometheus.CounterVec

	// Route guard metrics
	guardDecisionsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_requests_total",
		Help: "Total backend calls by method and outcome",
	}, []string{"method", "outcome"})

	m.requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_request_duration_seconds",
		Help:    "Backend call duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_refresh_total",
		Help: "Total silent credential refresh attempts by outcome",
	}, []string{"outcome"})

	m.refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_refresh_duration_seconds",
		Help:    "Silent refresh duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_request_retries_total",
		Help: "Total requests resent after a successful refresh",
	})

	m.operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_operations_total",
		Help: "Total session manager operations by name and outcome",
	}, []string{"operation", "outcome"})

	m.guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_guard_decisions_total",
		Help: "Total route guard decisions by action",
	}, []string{"action"})

	return m
}

// RecordRequest records one backend call.
func (m *Metrics) RecordRequest(method, outcome string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.Observe(durationSeconds)
}

// RecordRefresh records one silent refresh attempt.
func (m *Metrics) RecordRefresh(outcome string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.refreshTotal.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(durationSeconds)
}

// RecordRetry records a request resent after a successful refresh.
func (m *Metrics) RecordRetry() {
	if !m.enabled {
		return
	}
	m.retriesTotal.Inc()
}

// RecordOperation records a session manager operation result.
func (m *Metrics) RecordOperation(operation, outcome string) {
	if !m.enabled {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordGuardDecision records a route guard decision.
func (m *Metrics) RecordGuardDecision(action string) {
	if !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(action).Inc()
}
