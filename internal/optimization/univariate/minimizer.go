// Package univariate implements one-dimensional minimizers: Brent's method on
// a bracket, a bounded bracket search around a guess, and a safeguarded
// Newton-Raphson solver on the derivative.
package univariate

import (
	"math"

	"go.uber.org/zap"
)

const (
	// DefaultMaxIterations caps Brent's method.
	DefaultMaxIterations = 100
	// DefaultMaxNewtonSteps caps the Newton solver.
	DefaultMaxNewtonSteps = 100

	component = "univariate"
)

// Minimizer holds the settings shared by the one-dimensional entry points.
// The zero value is usable; it runs with the default caps and no logging.
// A Minimizer keeps no state between calls.
type Minimizer struct {
	// MaxIterations caps Brent's method. Zero means DefaultMaxIterations.
	MaxIterations int
	// MaxNewtonSteps caps the Newton solver. Zero means DefaultMaxNewtonSteps.
	MaxNewtonSteps int
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// Result is the outcome of a one-dimensional minimization.
type Result struct {
	// X is the located minimizer.
	X float64
	// F is the objective value at X.
	F float64
	// Curvature estimates the second derivative at X. Brent computes it from
	// its three best points; Newton reports the last second derivative it
	// evaluated.
	Curvature float64
	// Iterations is the number of Brent iterations or Newton steps.
	Iterations int
	// Converged is false when the iteration cap was exhausted.
	Converged bool
}

// FiniteCurvature returns Curvature, or nil when the estimate is NaN or
// infinite (coincident Brent points, for example).
func (r Result) FiniteCurvature() *float64 {
	if math.IsNaN(r.Curvature) || math.IsInf(r.Curvature, 0) {
		return nil
	}
	c := r.Curvature
	return &c
}

func (m *Minimizer) maxIterations() int {
	if m.MaxIterations > 0 {
		return m.MaxIterations
	}
	return DefaultMaxIterations
}

func (m *Minimizer) maxNewtonSteps() int {
	if m.MaxNewtonSteps > 0 {
		return m.MaxNewtonSteps
	}
	return DefaultMaxNewtonSteps
}

func (m *Minimizer) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger.Named(component)
}

// sign returns |a| carrying the sign of b, treating -0 as positive.
func sign(a, b float64) float64 {
	if b >= 0 {
		return math.Abs(a)
	}
	return -math.Abs(a)
}
