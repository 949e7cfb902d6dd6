// Package linesearch implements a backtracking line search along a descent
// direction that keeps every trial point inside box constraints.
package linesearch

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

const (
	// DecreaseFactor is the constant of the sufficient decrease condition.
	DecreaseFactor = 1.0e-4
	// MinStepTolerance is the smallest relative change of a coordinate the
	// search will still try.
	MinStepTolerance = 1.0e-7
)

// Problem is the input to Search.
type Problem struct {
	// Objective is evaluated at clipped trial points.
	Objective optimization.Objective
	// X0 is the start point and F0 the objective value there.
	X0 []float64
	F0 float64
	// Gradient at X0.
	Gradient []float64
	// Direction to search along. It is rescaled to MaxStep when longer;
	// the caller's slice is not modified.
	Direction []float64
	// MaxStep bounds the Euclidean length of the full step.
	MaxStep float64
	// Bounds clip every trial point.
	Bounds optimization.Bounds
}

// Result is the outcome of Search.
type Result struct {
	// F is the objective value at the returned point.
	F float64
	// Step is the accepted step length along the rescaled direction.
	Step float64
	// Evaluations counts objective calls.
	Evaluations int
	// Stalled is set when the step shrank below the minimum before the
	// decrease condition held. The returned point is then X0 and F is F0.
	Stalled bool
}

// Searcher runs bounded line searches. The zero value is ready to use.
type Searcher struct {
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// Search looks for a step length a in (0, 1] such that
// f(x0 + a*d) <= f0 + DecreaseFactor * a * (g . d), writing the accepted
// point into x. The first backtrack minimizes a quadratic model of the
// objective along d, later ones a cubic through the last two trials, with
// the new step kept inside [0.1a, 0.5a].
func (s *Searcher) Search(p Problem, x []float64) (Result, error) {
	const op = "linesearch.Search"

	n := len(p.X0)
	if len(x) != n || len(p.Gradient) != n || len(p.Direction) != n {
		return Result{}, optimization.NewErrorf("length mismatch: x0 %d, x %d, gradient %d, direction %d",
			n, len(x), len(p.Gradient), len(p.Direction)).WithOperation(op)
	}

	log := zap.NewNop()
	if s.Logger != nil {
		log = s.Logger.Named("linesearch")
	}

	dir := append([]float64(nil), p.Direction...)
	if norm := math.Sqrt(floats.Dot(dir, dir)); norm > p.MaxStep {
		floats.Scale(p.MaxStep/norm, dir)
	}
	slope := floats.Dot(p.Gradient, dir)

	test := 0.0
	for i := range dir {
		if temp := math.Abs(dir[i]) / fmax(math.Abs(p.X0[i]), 1.0); temp > test {
			test = temp
		}
	}
	alamin := MinStepTolerance / test

	var (
		alam  = 1.0
		alam2 float64
		f2    float64
		res   Result
	)
	for first := true; ; first = false {
		floats.AddScaledTo(x, p.X0, alam, dir)
		p.Bounds.Clamp(x)

		f, err := optimization.Value(op, p.Objective, x)
		res.Evaluations++
		if err != nil {
			copy(x, p.X0)
			res.F = p.F0
			return res, err
		}

		if alam < alamin {
			copy(x, p.X0)
			log.Debug("Line search stalled",
				zap.Float64("step", alam),
				zap.Float64("min_step", alamin),
				zap.Int("evaluations", res.Evaluations),
			)
			res.F = p.F0
			res.Stalled = true
			return res, nil
		}
		if f <= p.F0+DecreaseFactor*alam*slope {
			res.F = f
			res.Step = alam
			return res, nil
		}

		var tmplam float64
		if first {
			tmplam = -slope / (2.0 * (f - p.F0 - slope))
		} else {
			tmplam = cubicStep(alam, alam2, f, f2, p.F0, slope)
			if tmplam > 0.5*alam {
				tmplam = 0.5 * alam
			}
		}
		alam2 = alam
		f2 = f
		alam = fmax(tmplam, 0.1*alam)
	}
}

// cubicStep minimizes the cubic interpolating the start value and slope
// and the two latest trials (alam, f) and (alam2, f2).
func cubicStep(alam, alam2, f, f2, f0, slope float64) float64 {
	rhs1 := f - f0 - alam*slope
	rhs2 := f2 - f0 - alam2*slope
	a := (rhs1/(alam*alam) - rhs2/(alam2*alam2)) / (alam - alam2)
	b := (-alam2*rhs1/(alam*alam) + alam*rhs2/(alam2*alam2)) / (alam - alam2)
	if a == 0.0 {
		return -slope / (2.0 * b)
	}
	disc := b*b - 3.0*a*slope
	switch {
	case disc < 0.0:
		return 0.5 * alam
	case b <= 0.0:
		return (-b + math.Sqrt(disc)) / (3.0 * a)
	default:
		return -slope / (b + math.Sqrt(disc))
	}
}

// fmax returns b unless a is strictly greater, so a NaN a yields b.
func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
