// Package functions provides benchmark objectives for the minimizers and a
// registry resolving them by name.
package functions

import (
	"math"
	"sync/atomic"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

// Sphere is f(x) = sum x_i^2.
type Sphere struct {
	N int
}

func (s Sphere) Dimension() int { return s.N }

func (s Sphere) Evaluate(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

// Bowl is an axis-scaled quadratic sum Scale_i (x_i - Center_i)^2 with its
// minimum of zero at Center.
type Bowl struct {
	Center []float64
	Scale  []float64
}

// NewBowl returns the n-dimensional bowl with Center_i = 0.5*(i+1) and
// Scale_i = i+1.
func NewBowl(n int) Bowl {
	b := Bowl{Center: make([]float64, n), Scale: make([]float64, n)}
	for i := 0; i < n; i++ {
		b.Center[i] = 0.5 * float64(i+1)
		b.Scale[i] = float64(i + 1)
	}
	return b
}

func (b Bowl) Dimension() int { return len(b.Center) }

func (b Bowl) Evaluate(x []float64) float64 {
	sum := 0.0
	for i, v := range x {
		d := v - b.Center[i]
		sum += b.Scale[i] * d * d
	}
	return sum
}

// Rosenbrock is the extended Rosenbrock function, minimum 0 at (1, ..., 1).
type Rosenbrock struct {
	N int
}

func (r Rosenbrock) Dimension() int { return r.N }

func (r Rosenbrock) Evaluate(x []float64) float64 {
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := 1 - x[i]
		b := x[i+1] - x[i]*x[i]
		sum += a*a + 100*b*b
	}
	return sum
}

// Offset is a sphere centred at Shift in every coordinate. With bounds that
// exclude Shift its constrained minimum sits on the boundary.
type Offset struct {
	N     int
	Shift float64
}

func (o Offset) Dimension() int { return o.N }

func (o Offset) Evaluate(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		d := v - o.Shift
		sum += d * d
	}
	return sum
}

// Parabola is (x - Center)^2.
type Parabola struct {
	Center float64
}

func (p Parabola) Evaluate(x float64) float64 {
	d := x - p.Center
	return d * d
}

func (p Parabola) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	d := x - p.Center
	return d * d, 2 * d, 2
}

// Quartic is (x - Center)^4 + (x - Center)^2.
type Quartic struct {
	Center float64
}

func (q Quartic) Evaluate(x float64) float64 {
	d := x - q.Center
	return d*d*d*d + d*d
}

func (q Quartic) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	d := x - q.Center
	return d*d*d*d + d*d, 4*d*d*d + 2*d, 12*d*d + 2
}

// Linear is x - Offset; on any interval its minimum is the lower bound.
type Linear struct {
	Offset float64
}

func (l Linear) Evaluate(x float64) float64 {
	return x - l.Offset
}

func (l Linear) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	return x - l.Offset, 1, 0
}

// Counting wraps an objective and counts evaluations. It is safe to read
// Count while another goroutine evaluates.
type Counting struct {
	optimization.Objective
	n atomic.Int64
}

// NewCounting wraps obj.
func NewCounting(obj optimization.Objective) *Counting {
	return &Counting{Objective: obj}
}

func (c *Counting) Evaluate(x []float64) float64 {
	c.n.Add(1)
	return c.Objective.Evaluate(x)
}

// Count returns the number of evaluations so far.
func (c *Counting) Count() int {
	return int(c.n.Load())
}

// CountingUnivariate wraps a differentiable univariate objective and counts
// plain and derivative evaluations separately.
type CountingUnivariate struct {
	optimization.Differentiable
	values      atomic.Int64
	derivatives atomic.Int64
}

// NewCountingUnivariate wraps fn.
func NewCountingUnivariate(fn optimization.Differentiable) *CountingUnivariate {
	return &CountingUnivariate{Differentiable: fn}
}

func (c *CountingUnivariate) Evaluate(x float64) float64 {
	c.values.Add(1)
	return c.Differentiable.Evaluate(x)
}

func (c *CountingUnivariate) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	c.derivatives.Add(1)
	return c.Differentiable.EvaluateWithDerivatives(x)
}

// Counts returns the number of plain and derivative evaluations.
func (c *CountingUnivariate) Counts() (values, derivatives int) {
	return int(c.values.Load()), int(c.derivatives.Load())
}

// NaN returns an objective of dimension n that is NaN everywhere.
func NaN(n int) optimization.Objective {
	return optimization.Func{N: n, F: func([]float64) float64 { return math.NaN() }}
}
