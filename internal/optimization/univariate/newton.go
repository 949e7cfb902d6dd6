package univariate

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

// Newton minimizes fn on [x1, x2] by finding a root of its first derivative,
// starting from xguess clamped into the interval. A Newton step is taken only
// while the second derivative is positive, the value has not risen by more
// than xacc since the previous step, and the step stays inside the current
// sign bracket of the derivative; otherwise the bracket is bisected.
//
// The returned point is never worse than the starting point: if the final
// candidate has a higher value, the starting point is evaluated again and
// returned instead. A non-finite evaluation aborts with a NumericalFailure.
func (m *Minimizer) Newton(fn optimization.Differentiable, x1, xguess, x2, xacc float64) (Result, error) {
	const op = "univariate.Newton"
	log := m.logger()

	if !(x1 <= x2) {
		return Result{}, optimization.NewErrorf("invalid interval [%v, %v]", x1, x2).
			WithOperation(op).WithComponent(component)
	}

	rts := optimization.Clamp(xguess, x1, x2)
	xinit := rts
	fm, f, df, err := optimization.Derivatives(op, fn, rts)
	if err != nil {
		return Result{X: rts}, err
	}
	finit, fold := fm, fm
	d2l := df
	if df >= 0.0 && math.Abs(f) < xacc {
		return Result{X: rts, F: fm, Curvature: d2l, Converged: true}, nil
	}

	// keep the derivative negative at xl and non-negative at xh
	var xl, xh float64
	if f < 0.0 {
		xl, xh = rts, x2
	} else {
		xl, xh = x1, rts
	}

	// revert guards the promise never to end worse than the start
	revert := func(res Result) (Result, error) {
		if res.F <= finit {
			return res, nil
		}
		log.Debug("Newton result worse than start, reverting",
			zap.Float64("x", res.X),
			zap.Float64("f", res.F),
			zap.Float64("start", xinit),
			zap.Float64("start_f", finit),
		)
		fx, err := optimization.UnivariateValue(op, fn, xinit)
		if err != nil {
			return res, err
		}
		res.X, res.F = xinit, fx
		return res, nil
	}

	maxSteps := m.maxNewtonSteps()
	dx := math.Abs(xh - xl)
	for j := 1; j <= maxSteps; j++ {
		rtsOld := rts
		if df <= 0.0 || fm > fold+xacc || ((rts-xh)*df-f)*((rts-xl)*df-f) >= 0.0 {
			dx = 0.5 * (xh - xl)
			rts = xl + dx
			d2l = df
			if xl == rts {
				return revert(Result{X: rtsOld, F: fm, Curvature: d2l, Iterations: j, Converged: true})
			}
		} else {
			dx = f / df
			rts -= dx
			d2l = df
			if rtsOld == rts {
				return revert(Result{X: rtsOld, F: fm, Curvature: d2l, Iterations: j, Converged: true})
			}
		}

		if math.Abs(dx) < xacc || j == maxSteps {
			converged := math.Abs(dx) < xacc
			if !converged {
				log.Debug("Newton step cap reached",
					zap.Int("max_steps", maxSteps),
					zap.Float64("x", rtsOld),
					zap.Float64("f", fm),
				)
			}
			return revert(Result{X: rtsOld, F: fm, Curvature: d2l, Iterations: j, Converged: converged})
		}

		fold = fm
		fm, f, df, err = optimization.Derivatives(op, fn, rts)
		if err != nil {
			return Result{X: rtsOld, F: fold}, err
		}
		if df > 0.0 && math.Abs(f) < xacc {
			return revert(Result{X: rts, F: fm, Curvature: df, Iterations: j, Converged: true})
		}
		if f < 0.0 {
			xl = rts
		} else {
			xh = rts
		}
	}

	// unreachable: the loop returns on its last step
	return revert(Result{X: rts, F: fm, Curvature: d2l, Iterations: maxSteps})
}

// NewtonSafe runs Newton and then prefers either end of the interval when
// its value is within xacc of the Newton optimum, checking x2 before x1.
func (m *Minimizer) NewtonSafe(fn optimization.Differentiable, x1, xguess, x2, xacc float64) (Result, error) {
	res, err := m.Newton(fn, x1, xguess, x2, xacc)
	if err != nil {
		return res, err
	}
	return m.preferBounds(fn, "univariate.NewtonSafe", res, x1, x2, xacc)
}
