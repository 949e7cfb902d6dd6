package univariate

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

// bracketWidth scales the initial half width tolerance*|xguess|.
const bracketWidth = 50.0

// Minimize finds a local minimum of fn in [xmin, xmax] starting from xguess.
// It first tries a narrow bracket around the guess and falls back to the
// whole interval when the guess is not the lowest of the three points.
func (m *Minimizer) Minimize(fn optimization.Univariate, xmin, xguess, xmax, tolerance float64) (Result, error) {
	const op = "univariate.Minimize"

	if !(xmin <= xmax) {
		return Result{}, optimization.NewErrorf("invalid interval [%v, %v]", xmin, xmax).
			WithOperation(op).WithComponent(component)
	}

	xguess = optimization.Clamp(xguess, xmin, xmax)
	eps := math.Abs(xguess) * tolerance * bracketWidth
	br := Bracket{
		A: math.Max(xguess-eps, xmin),
		B: xguess,
		C: math.Min(xguess+eps, xmax),
	}

	var err error
	if br.FA, err = optimization.UnivariateValue(op, fn, br.A); err != nil {
		return Result{}, err
	}
	if br.FB, err = optimization.UnivariateValue(op, fn, br.B); err != nil {
		return Result{}, err
	}
	if br.FC, err = optimization.UnivariateValue(op, fn, br.C); err != nil {
		return Result{}, err
	}

	// A collapsed bracket carries no valley information either.
	if br.FA < br.FB || br.FC < br.FB || (br.A == br.C && xmin < xmax) {
		m.logger().Debug("Bracket rejected, using whole interval",
			zap.Float64("guess", xguess),
			zap.Float64("xmin", xmin),
			zap.Float64("xmax", xmax),
		)
		if br.A != xmin {
			if br.FA, err = optimization.UnivariateValue(op, fn, xmin); err != nil {
				return Result{}, err
			}
		}
		if br.C != xmax {
			if br.FC, err = optimization.UnivariateValue(op, fn, xmax); err != nil {
				return Result{}, err
			}
		}
		br.A, br.C = xmin, xmax
	}

	return m.Brent(fn, br, tolerance)
}

// MinimizeSafe runs Minimize and then compares the result with both ends of
// the interval. An end whose value is within tolerance of the interior
// optimum replaces it, so a minimum sitting exactly on a bound is returned
// as that bound.
func (m *Minimizer) MinimizeSafe(fn optimization.Univariate, xmin, xguess, xmax, tolerance float64) (Result, error) {
	res, err := m.Minimize(fn, xmin, xguess, xmax, tolerance)
	if err != nil {
		return res, err
	}
	return m.preferBounds(fn, "univariate.MinimizeSafe", res, xmin, xmax, tolerance)
}

// preferBounds checks xmax first and then xmin, replacing the result with a
// bound whose value is no worse than res.F + tolerance.
func (m *Minimizer) preferBounds(fn optimization.Univariate, op string, res Result, xmin, xmax, tolerance float64) (Result, error) {
	if res.X < xmax {
		f, err := optimization.UnivariateValue(op, fn, xmax)
		if err != nil {
			return res, err
		}
		if f <= res.F+tolerance {
			m.logger().Debug("Moved optimum to upper bound",
				zap.Float64("from", res.X),
				zap.Float64("from_f", res.F),
				zap.Float64("to", xmax),
				zap.Float64("to_f", f),
			)
			res.X, res.F = xmax, f
		}
	}
	if res.X > xmin {
		f, err := optimization.UnivariateValue(op, fn, xmin)
		if err != nil {
			return res, err
		}
		if f <= res.F+tolerance {
			m.logger().Debug("Moved optimum to lower bound",
				zap.Float64("from", res.X),
				zap.Float64("from_f", res.F),
				zap.Float64("to", xmin),
				zap.Float64("to_f", f),
			)
			res.X, res.F = xmin, f
		}
	}
	return res, nil
}
