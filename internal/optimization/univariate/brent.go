package univariate

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

const (
	// golden section ratio used when a parabolic step is rejected
	cgold = 0.3819660
	// protects the tolerance test against a minimum at exactly zero
	zeps = 1.0e-10
)

// Bracket is an ordered triple A, B, C (increasing or decreasing) with the
// objective values at each point. FB must be no greater than FA and FC.
type Bracket struct {
	A, B, C    float64
	FA, FB, FC float64
}

// Brent minimizes fn inside the bracket br with Brent's method, to a
// fractional precision of about tol. Running out of iterations is not an
// error: the best point found is returned with Converged unset.
func (m *Minimizer) Brent(fn optimization.Univariate, br Bracket, tol float64) (Result, error) {
	const op = "univariate.Brent"
	log := m.logger()

	a := math.Min(br.A, br.C)
	b := math.Max(br.A, br.C)
	x, fx := br.B, br.FB
	var w, fw, v, fv float64
	if br.FA < br.FC {
		w, fw = br.A, br.FA
		v, fv = br.C, br.FC
	} else {
		w, fw = br.C, br.FC
		v, fv = br.A, br.FA
	}

	var d, e float64
	maxIter := m.maxIterations()
	for iter := 1; iter <= maxIter; iter++ {
		xm := 0.5 * (a + b)
		tol1 := tol*math.Abs(x) + zeps
		tol2 := 2.0 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(b-a) {
			return Result{
				X:          x,
				F:          fx,
				Curvature:  curvature(x, w, v, fx, fw, fv),
				Iterations: iter,
				Converged:  true,
			}, nil
		}

		if math.Abs(e) > tol1 {
			// parabola through x, v and w
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2.0 * (q - r)
			if q > 0.0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d
			if math.Abs(p) >= math.Abs(0.5*q*etemp) || p <= q*(a-x) || p >= q*(b-x) {
				e = goldenStep(x, xm, a, b)
				d = cgold * e
			} else {
				d = p / q
				u := x + d
				if u-a < tol2 || b-u < tol2 {
					d = sign(tol1, xm-x)
				}
			}
		} else {
			e = goldenStep(x, xm, a, b)
			d = cgold * e
		}

		var u float64
		if math.Abs(d) >= tol1 {
			u = x + d
		} else {
			u = x + sign(tol1, d)
		}
		fu, err := optimization.UnivariateValue(op, fn, u)
		if err != nil {
			return Result{X: x, F: fx}, err
		}

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
		} else {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, w = w, u
				fv, fw = fw, fu
			} else if fu <= fv || v == x || v == w {
				v, fv = u, fu
			}
		}
	}

	log.Debug("Brent iteration cap reached",
		zap.Int("max_iterations", maxIter),
		zap.Float64("x", x),
		zap.Float64("f", fx),
	)

	return Result{
		X:          x,
		F:          fx,
		Curvature:  curvature(x, w, v, fx, fw, fv),
		Iterations: maxIter,
	}, nil
}

// goldenStep returns the larger of the two bracket segments seen from x,
// signed towards it.
func goldenStep(x, xm, a, b float64) float64 {
	if x >= xm {
		return a - x
	}
	return b - x
}

// curvature is the second derivative of the parabola through (x, fx),
// (w, fw) and (v, fv). It is NaN or infinite when the points coincide.
func curvature(x, w, v, fx, fw, fv float64) float64 {
	xw := x - w
	wv := w - v
	vx := v - x
	return 2.0 * (fv*xw + fx*wv + fw*vx) / (v*v*xw + x*x*wv + w*w*vx)
}
