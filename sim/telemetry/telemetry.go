// Package telemetry exposes Prometheus metrics for evaluation runs. All
// recording methods are safe on a nil *Registry, which records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the run metrics and the Prometheus registry they live in.
type Registry struct {
	registry *prometheus.Registry

	StepsTotal            *prometheus.CounterVec
	RunsTotal             *prometheus.CounterVec
	RunDuration           *prometheus.HistogramVec
	ResilienceIntegral    *prometheus.HistogramVec
	EigensolverIterations prometheus.Histogram
	EigensolverFailures   prometheus.Counter
	StrategyFallbacks     *prometheus.CounterVec
	GraphFailures         prometheus.Counter
}

// NewRegistry creates a Registry backed by a fresh Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.StepsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ressim_steps_total",
			Help: "Operations applied, by task and strategy",
		},
		[]string{"task", "strategy"},
	)
	r.RunsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ressim_runs_total",
			Help: "Evaluation runs finished, by task, strategy and status",
		},
		[]string{"task", "strategy", "status"},
	)
	r.RunDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ressim_run_duration_seconds",
			Help:    "Wall-clock duration of evaluation runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
		},
		[]string{"task"},
	)
	r.ResilienceIntegral = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ressim_resilience_integral",
			Help:    "Resilience integral of finished runs",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"task", "strategy"},
	)
	r.EigensolverIterations = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ressim_eigensolver_iterations",
			Help:    "Lanczos iterations per pruning step",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
	r.EigensolverFailures = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ressim_eigensolver_failures_total",
			Help: "Pruning steps that fell back to unpruned candidates",
		},
	)
	r.StrategyFallbacks = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ressim_strategy_fallbacks_total",
			Help: "Strategy hand-overs to the random fallback, by original strategy",
		},
		[]string{"from"},
	)
	r.GraphFailures = f.NewCounter(
		prometheus.CounterOpts{
			Name: "ressim_batch_graph_failures_total",
			Help: "Graphs in a batch that could not be evaluated",
		},
	)
	return r
}

// Gatherer returns the underlying Prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordStep counts one applied operation.
func (r *Registry) RecordStep(task, strategy string) {
	if r == nil {
		return
	}
	r.StepsTotal.WithLabelValues(task, strategy).Inc()
}

// RecordPruning records the eigensolver outcome of one pruning step.
func (r *Registry) RecordPruning(iterations int, degraded bool) {
	if r == nil {
		return
	}
	if degraded {
		r.EigensolverFailures.Inc()
		return
	}
	r.EigensolverIterations.Observe(float64(iterations))
}

// RecordFallback counts a strategy hand-over.
func (r *Registry) RecordFallback(from string) {
	if r == nil {
		return
	}
	r.StrategyFallbacks.WithLabelValues(from).Inc()
}

// RecordRun records a finished run. rres is ignored when status is not "ok".
func (r *Registry) RecordRun(task, strategy, status string, duration time.Duration, rres float64) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(task, strategy, status).Inc()
	r.RunDuration.WithLabelValues(task).Observe(duration.Seconds())
	if status == StatusOK {
		r.ResilienceIntegral.WithLabelValues(task, strategy).Observe(rres)
	}
}

// RecordGraphFailure counts a graph skipped by batch evaluation.
func (r *Registry) RecordGraphFailure() {
	if r == nil {
		return
	}
	r.GraphFailures.Inc()
}

// WriteTextfile writes every metric in text exposition format to path,
// for pickup by a node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
