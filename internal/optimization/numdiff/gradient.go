// Package numdiff approximates gradients of an objective by forward
// differences.
package numdiff

import (
	"math"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

// RelativeStep is the forward-difference step relative to the magnitude of
// the perturbed coordinate. It is also the absolute step used for a
// coordinate that is exactly zero.
const RelativeStep = 1.0e-4

const op = "numdiff.Gradient"

// ValueGradient evaluates obj at x and stores the forward-difference
// gradient in grad. It costs exactly len(x)+1 evaluations and returns the
// base value. x is unchanged on return.
func ValueGradient(obj optimization.Objective, x, grad []float64) (float64, error) {
	fx, err := optimization.Value(op, obj, x)
	if err != nil {
		return fx, err
	}
	return fx, Gradient(obj, x, fx, grad)
}

// Gradient stores in grad the forward-difference gradient of obj at x given
// fx = obj(x). It costs exactly len(x) evaluations. Each coordinate is
// restored bit-for-bit before the next one is perturbed.
func Gradient(obj optimization.Objective, x []float64, fx float64, grad []float64) error {
	if len(grad) != len(x) {
		return optimization.NewErrorf("gradient has length %d, point has %d", len(grad), len(x)).
			WithOperation(op)
	}
	for i := range x {
		xi := x[i]
		h := RelativeStep * math.Abs(xi)
		if h == 0 {
			h = RelativeStep
		}
		x[i] = xi + h
		// the step actually represented in floating point
		h = x[i] - xi
		f, err := optimization.Value(op, obj, x)
		x[i] = xi
		if err != nil {
			return err
		}
		grad[i] = (f - fx) / h
	}
	return nil
}
