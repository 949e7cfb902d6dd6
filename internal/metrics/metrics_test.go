package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/functions"
	"github.com/copyleftdev/boxmin/internal/optimization/restart"
)

func TestInstrumentCountsEvaluations(t *testing.T) {
	m := New(prometheus.NewRegistry())

	obj := m.Instrument("sphere", functions.Sphere{N: 2})
	for i := 0; i < 5; i++ {
		obj.Evaluate([]float64{1, 2})
	}
	assert.Equal(t, 2, obj.Dimension())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("sphere")))

	fn := m.InstrumentUnivariate("parabola", functions.Parabola{Center: 1})
	fn.Evaluate(0)
	_, d1, d2 := fn.EvaluateWithDerivatives(0)
	assert.Equal(t, -2.0, d1)
	assert.Equal(t, 2.0, d2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("parabola")))
}

func TestRecorderWithController(t *testing.T) {
	m := New(prometheus.NewRegistry())
	obj := m.Instrument("offset", functions.Offset{N: 2, Shift: 20})
	cfg := optimization.OptimizerConfig{
		Objective:    obj,
		Bounds:       optimization.Bounds{Lower: []float64{0, 0}, Upper: []float64{10, 10}},
		InitialGuess: []float64{5, 5},
		RandomSeed:   42,
	}

	res, err := restart.NewController(cfg, restart.WithRecorder(m)).Optimize(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Restarts))
	statuses := make(map[string]float64)
	for _, eval := range res.History {
		statuses[eval.Status]++
	}
	for status, n := range statuses {
		assert.Equal(t, n, testutil.ToFloat64(m.Runs.WithLabelValues(status)), status)
	}
	assert.Equal(t, float64(res.Evaluations), testutil.ToFloat64(m.Evaluations.WithLabelValues("offset")))
}

func TestJobStarted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.JobStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsActive))
	done(0.5)
	done(0.5)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsActive))
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	obj := functions.Sphere{N: 1}

	assert.Equal(t, obj, m.Instrument("sphere", obj))
	m.ObserveRun("step_converged")
	m.ObserveRestart()
	m.JobStarted()(1)
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "double registration")
}
