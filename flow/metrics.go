package flow

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection
// for engine monitoring in production environments.
//
// Metrics exposed (all namespaced with "flowkit_"):
//
//  1. inflight_resumes (gauge): Resume calls currently executing.
//  2. step_latency_ms (histogram): step execution duration in
//     milliseconds, labeled by step_id and status (success/error).
//  3. resumes_total (counter): completed Resume calls, labeled by
//     outcome (final/suspended/error).
//  4. suspends_total (counter): suspensions, labeled by reason tag.
//  5. checkpoint_conflicts_total (counter): version conflicts from
//     concurrent resumes of the same thread.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := flow.NewPrometheusMetrics(registry)
//	engine := flow.New(reducer, st, emitter, flow.WithMetrics(metrics))
//
//	// Expose via HTTP for Prometheus scraping:
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: all methods use Prometheus collectors' own
// synchronization.
type PrometheusMetrics struct {
	inflightResumes prometheus.Gauge
	stepLatency     *prometheus.HistogramVec
	resumes         *prometheus.CounterVec
	suspends        *prometheus.CounterVec
	conflicts       prometheus.Counter

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all engine metrics with
// the provided Prometheus registry.
//
// Pass prometheus.DefaultRegisterer for the global registry, or a
// dedicated prometheus.NewRegistry() for isolation (recommended in
// tests).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.inflightResumes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowkit",
		Name:      "inflight_resumes",
		Help:      "Resume calls currently executing",
	})

	pm.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flowkit",
		Name:      "step_latency_ms",
		Help:      "Step execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}, // 1ms to 10s
	}, []string{"step_id", "status"}) // status: success, error

	pm.resumes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowkit",
		Name:      "resumes_total",
		Help:      "Completed Resume calls by outcome",
	}, []string{"outcome"}) // outcome: final, suspended, error

	pm.suspends = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowkit",
		Name:      "suspends_total",
		Help:      "Suspensions awaiting external input, by reason tag",
	}, []string{"reason"})

	pm.conflicts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "flowkit",
		Name:      "checkpoint_conflicts_total",
		Help:      "Checkpoint version conflicts from concurrent resumes of one thread",
	})

	return pm
}

// RecordStepLatency records the execution duration of a step.
//
// status is "success" or "error".
func (pm *PrometheusMetrics) RecordStepLatency(stepID string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.stepLatency.WithLabelValues(stepID, status).Observe(float64(latency.Milliseconds()))
}

// IncResumes increments the resume outcome counter.
//
// outcome is "final", "suspended", or "error".
func (pm *PrometheusMetrics) IncResumes(outcome string) {
	if !pm.isEnabled() {
		return
	}
	pm.resumes.WithLabelValues(outcome).Inc()
}

// IncSuspends increments the suspend counter for a reason tag.
func (pm *PrometheusMetrics) IncSuspends(reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.suspends.WithLabelValues(reason).Inc()
}

// IncConflicts increments the checkpoint conflict counter.
func (pm *PrometheusMetrics) IncConflicts() {
	if !pm.isEnabled() {
		return
	}
	pm.conflicts.Inc()
}

// ResumeStarted increments the inflight gauge; ResumeFinished
// decrements it.
func (pm *PrometheusMetrics) ResumeStarted() {
	if !pm.isEnabled() {
		return
	}
	pm.inflightResumes.Inc()
}

// ResumeFinished decrements the inflight gauge.
func (pm *PrometheusMetrics) ResumeFinished() {
	if !pm.isEnabled() {
		return
	}
	pm.inflightResumes.Dec()
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
