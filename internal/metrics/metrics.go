// Package metrics defines the Prometheus collectors exported by the server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

const namespace = "boxmin"

// Metrics holds the collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	Restarts    prometheus.Counter
	JobDuration prometheus.Histogram
	JobsActive  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objective_evaluations_total",
			Help:      "Objective function evaluations by objective name.",
		}, []string{"objective"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished BFGS runs by termination status.",
		}, []string{"status"}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "BFGS restarts triggered by boundary-stuck results.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of optimization jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		JobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Optimization jobs currently running.",
		}),
	}
	reg.MustRegister(m.Evaluations, m.Runs, m.Restarts, m.JobDuration, m.JobsActive)
	return m
}

// ObserveRun counts a finished BFGS run.
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
}

// ObserveRestart counts a restart.
func (m *Metrics) ObserveRestart() {
	if m == nil {
		return
	}
	m.Restarts.Inc()
}

// JobStarted marks a job as running and returns a func that records its
// duration and marks it finished.
func (m *Metrics) JobStarted() func(seconds float64) {
	if m == nil {
		return func(float64) {}
	}
	m.JobsActive.Inc()
	var once sync.Once
	return func(seconds float64) {
		once.Do(func() {
			m.JobsActive.Dec()
			m.JobDuration.Observe(seconds)
		})
	}
}

// Instrument wraps obj so that every evaluation is counted under name.
func (m *Metrics) Instrument(name string, obj optimization.Objective) optimization.Objective {
	if m == nil {
		return obj
	}
	return &instrumented{Objective: obj, counter: m.Evaluations.WithLabelValues(name)}
}

// InstrumentUnivariate is Instrument for differentiable univariate
// objectives. Plain and derivative evaluations are counted alike.
func (m *Metrics) InstrumentUnivariate(name string, fn optimization.Differentiable) optimization.Differentiable {
	if m == nil {
		return fn
	}
	return &instrumentedUnivariate{Differentiable: fn, counter: m.Evaluations.WithLabelValues(name)}
}

type instrumented struct {
	optimization.Objective
	counter prometheus.Counter
}

func (o *instrumented) Evaluate(x []float64) float64 {
	o.counter.Inc()
	return o.Objective.Evaluate(x)
}

type instrumentedUnivariate struct {
	optimization.Differentiable
	counter prometheus.Counter
}

func (o *instrumentedUnivariate) Evaluate(x float64) float64 {
	o.counter.Inc()
	return o.Differentiable.Evaluate(x)
}

func (o *instrumentedUnivariate) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	o.counter.Inc()
	return o.Differentiable.EvaluateWithDerivatives(x)
}
