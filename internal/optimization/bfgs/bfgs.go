// Package bfgs implements a box-constrained quasi-Newton minimizer with a
// forward-difference gradient and the BFGS inverse Hessian update.
package bfgs

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/linesearch"
	"github.com/copyleftdev/boxmin/internal/optimization/numdiff"
)

const (
	// MaxIterations caps the number of line searches in one run.
	MaxIterations = 200

	// curvature guard of the Hessian update
	eps = 3.0e-8
	// relative step below which the run is considered converged
	tolX = 4 * eps
	// scale of the maximum line search step
	stepMax = 100.0

	component = "bfgs"
)

// Status reports why a run ended.
type Status int

const (
	// IterationLimit means MaxIterations line searches were made without
	// meeting either test.
	IterationLimit Status = iota
	// StepConverged means the last relative step was below tolerance.
	StepConverged
	// GradientConverged means the scaled gradient was below the caller's
	// tolerance.
	GradientConverged
)

func (s Status) String() string {
	switch s {
	case StepConverged:
		return "step_converged"
	case GradientConverged:
		return "gradient_converged"
	default:
		return "iteration_limit"
	}
}

// Result is the outcome of a BFGS run.
type Result struct {
	// X is the final point, owned by the caller.
	X []float64
	// F is the objective value at X.
	F float64
	// Iterations is the number of line searches performed.
	Iterations int
	// Evaluations counts objective calls, gradients included.
	Evaluations int
	// StepTest is the last largest relative coordinate change.
	StepTest float64
	// GradientTest is the last largest scaled gradient component, or NaN
	// when the run stopped before the gradient was recomputed.
	GradientTest float64
	// Status tells which test ended the run.
	Status Status
}

// Minimizer runs BFGS. The zero value is ready to use; a Minimizer keeps no
// state between runs.
type Minimizer struct {
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

// Minimize starts from guess and looks for a local minimum of obj inside
// bounds. gtol is the tolerance of the gradient test, where each gradient
// component is scaled by max(|x_i|, 1) / max(|f|, 1).
//
// Reaching MaxIterations is not an error; the current point is returned
// with Status IterationLimit. Non-finite evaluations abort the run with a
// NumericalFailure.
func (m *Minimizer) Minimize(obj optimization.Objective, guess []float64, bounds optimization.Bounds, gtol float64) (*Result, error) {
	const op = "bfgs.Minimize"

	n := obj.Dimension()
	if n < 1 {
		return nil, optimization.NewErrorf("objective dimension must be positive, got %d", n).
			WithOperation(op).WithComponent(component)
	}
	if len(guess) != n {
		return nil, optimization.NewErrorf("guess has %d coordinates, objective has %d", len(guess), n).
			WithOperation(op).WithComponent(component)
	}
	if err := bounds.Validate(n); err != nil {
		return nil, optimization.WrapError(err, "invalid bounds").WithOperation(op).WithComponent(component)
	}

	log := zap.NewNop()
	if m.Logger != nil {
		log = m.Logger.Named(component)
	}
	searcher := linesearch.Searcher{Logger: m.Logger}

	p := append([]float64(nil), guess...)
	bounds.Clamp(p)

	res := &Result{GradientTest: math.NaN()}
	g := make([]float64, n)
	fp, err := numdiff.ValueGradient(obj, p, g)
	res.Evaluations += n + 1
	if err != nil {
		return nil, optimization.WrapError(err, "initial gradient").WithOperation(op).WithComponent(component)
	}

	var (
		xi   = make([]float64, n)
		pnew = make([]float64, n)
		dg   = make([]float64, n)
		hdg  = make([]float64, n)
		u    = make([]float64, n)

		xiVec  = mat.NewVecDense(n, xi)
		gVec   = mat.NewVecDense(n, g)
		dgVec  = mat.NewVecDense(n, dg)
		hdgVec = mat.NewVecDense(n, hdg)
		uVec   = mat.NewVecDense(n, u)
	)

	hessin := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		hessin.SetSym(i, i, 1)
		xi[i] = -g[i]
	}
	stpmax := stepMax * fmax(floats.Norm(p, 2), float64(n))

	for its := 1; its <= MaxIterations; its++ {
		res.Iterations = its

		ls, err := searcher.Search(linesearch.Problem{
			Objective: obj,
			X0:        p,
			F0:        fp,
			Gradient:  g,
			Direction: xi,
			MaxStep:   stpmax,
			Bounds:    bounds,
		}, pnew)
		res.Evaluations += ls.Evaluations
		if err != nil {
			return nil, optimization.WrapErrorf(err, "line search at iteration %d", its).
				WithOperation(op).WithComponent(component)
		}

		fp = ls.F
		floats.SubTo(xi, pnew, p)
		copy(p, pnew)

		res.StepTest = stepTest(xi, p)
		if res.StepTest < tolX {
			log.Debug("Converged on step size",
				zap.Int("iteration", its),
				zap.Float64("f", fp),
				zap.Float64("step_test", res.StepTest),
				zap.Bool("line_search_stalled", ls.Stalled),
			)
			return finish(res, p, fp, StepConverged), nil
		}

		copy(dg, g)
		if err := numdiff.Gradient(obj, p, fp, g); err != nil {
			return nil, optimization.WrapErrorf(err, "gradient at iteration %d", its).
				WithOperation(op).WithComponent(component)
		}
		res.Evaluations += n

		res.GradientTest = gradientTest(g, p, fp)
		if res.GradientTest < gtol {
			log.Debug("Converged on gradient",
				zap.Int("iteration", its),
				zap.Float64("f", fp),
				zap.Float64("gradient_test", res.GradientTest),
			)
			return finish(res, p, fp, GradientConverged), nil
		}

		floats.SubTo(dg, g, dg)
		hdgVec.MulVec(hessin, dgVec)

		fac := floats.Dot(dg, xi)
		fae := floats.Dot(dg, hdg)
		sumdg := floats.Dot(dg, dg)
		sumxi := floats.Dot(xi, xi)

		// skip the update unless the curvature along the step is clearly positive
		if fac*fac > eps*sumdg*sumxi {
			fac = 1.0 / fac
			fad := 1.0 / fae
			floats.ScaleTo(u, fac, xi)
			floats.AddScaled(u, -fad, hdg)
			hessin.SymRankOne(hessin, fac, xiVec)
			hessin.SymRankOne(hessin, -fad, hdgVec)
			hessin.SymRankOne(hessin, fae, uVec)
		} else {
			log.Debug("Skipped Hessian update",
				zap.Int("iteration", its),
				zap.Float64("curvature", fac),
			)
		}

		xiVec.MulVec(hessin, gVec)
		floats.Scale(-1, xi)

		log.Debug("BFGS iteration",
			zap.Int("iteration", its),
			zap.Float64("f", fp),
			zap.Float64("step_test", res.StepTest),
			zap.Float64("gradient_test", res.GradientTest),
		)
	}

	log.Debug("Iteration limit reached",
		zap.Int("iterations", MaxIterations),
		zap.Float64("f", fp),
	)
	return finish(res, p, fp, IterationLimit), nil
}

func finish(res *Result, p []float64, f float64, status Status) *Result {
	res.X = p
	res.F = f
	res.Status = status
	return res
}

// stepTest returns the largest step component relative to its coordinate.
func stepTest(step, x []float64) float64 {
	test := 0.0
	for i := range step {
		if temp := math.Abs(step[i]) / fmax(math.Abs(x[i]), 1.0); temp > test {
			test = temp
		}
	}
	return test
}

// gradientTest returns max_i |g_i| * max(|x_i|, 1) / max(|f|, 1).
func gradientTest(g, x []float64, f float64) float64 {
	den := fmax(math.Abs(f), 1.0)
	test := 0.0
	for i := range g {
		if temp := math.Abs(g[i]) * fmax(math.Abs(x[i]), 1.0) / den; temp > test {
			test = temp
		}
	}
	return test
}

// fmax returns b unless a is strictly greater.
func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
