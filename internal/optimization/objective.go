package optimization

import "math"

// Objective is a scalar function of a fixed number of parameters.
// Evaluate must be deterministic and must return a finite value for every
// point inside the bounds handed to an optimizer.
type Objective interface {
	// Dimension returns the number of parameters, fixed for one call.
	Dimension() int
	// Evaluate returns the objective value at x. It must not retain x.
	Evaluate(x []float64) float64
}

// Univariate is a scalar function of one parameter.
type Univariate interface {
	Evaluate(x float64) float64
}

// Differentiable is a univariate objective that can also report its first
// and second derivative at a point.
type Differentiable interface {
	Univariate
	EvaluateWithDerivatives(x float64) (value, first, second float64)
}

// Func adapts a plain function of N parameters to Objective.
type Func struct {
	N int
	F func(x []float64) float64
}

// Dimension returns N.
func (f Func) Dimension() int { return f.N }

// Evaluate calls F.
func (f Func) Evaluate(x []float64) float64 { return f.F(x) }

// UnivariateFunc adapts a plain function to Univariate.
type UnivariateFunc func(x float64) float64

// Evaluate calls f.
func (f UnivariateFunc) Evaluate(x float64) float64 { return f(x) }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Value evaluates obj at x and reports a non-finite result as a
// NumericalFailure attributed to op.
func Value(op string, obj Objective, x []float64) (float64, error) {
	f := obj.Evaluate(x)
	if !isFinite(f) {
		return f, newNumericalFailure(op, x, f)
	}
	return f, nil
}

// UnivariateValue evaluates fn at x and reports a non-finite result as a
// NumericalFailure attributed to op.
func UnivariateValue(op string, fn Univariate, x float64) (float64, error) {
	f := fn.Evaluate(x)
	if !isFinite(f) {
		return f, newNumericalFailure(op, []float64{x}, f)
	}
	return f, nil
}

// Derivatives evaluates fn and its first two derivatives at x. Any
// non-finite component is a NumericalFailure attributed to op.
func Derivatives(op string, fn Differentiable, x float64) (value, first, second float64, err error) {
	value, first, second = fn.EvaluateWithDerivatives(x)
	if !isFinite(value) || !isFinite(first) || !isFinite(second) {
		return value, first, second, newNumericalFailure(op, []float64{x}, value, first, second)
	}
	return value, first, second, nil
}
