package univariate

import (
	"github.com/copyleftdev/boxmin/internal/optimization"
)

// Method names a one-dimensional entry point.
type Method string

const (
	// MethodBrent runs Minimize, Brent's method on a bracket around the guess.
	MethodBrent Method = "brent"
	// MethodBrentSafe runs MinimizeSafe, which prefers an end of the
	// interval whose value is within the tolerance.
	MethodBrentSafe Method = "brent_safe"
	// MethodNewton runs Newton on the first derivative.
	MethodNewton Method = "newton"
	// MethodNewtonSafe runs NewtonSafe, the boundary-checking Newton.
	MethodNewtonSafe Method = "newton_safe"
)

// Methods lists the accepted method names.
var Methods = []Method{MethodBrent, MethodBrentSafe, MethodNewton, MethodNewtonSafe}

// ParseMethod validates a method name. The empty string selects
// MethodBrentSafe.
func ParseMethod(name string) (Method, error) {
	if name == "" {
		return MethodBrentSafe, nil
	}
	for _, m := range Methods {
		if string(m) == name {
			return m, nil
		}
	}
	return "", optimization.NewErrorf("unknown method %q", name).
		WithOperation("univariate.ParseMethod").WithComponent(component)
}

// Solve runs method on fn over [xmin, xmax] starting from xguess.
func (m *Minimizer) Solve(method Method, fn optimization.Differentiable, xmin, xguess, xmax, tolerance float64) (Result, error) {
	switch method {
	case MethodBrent:
		return m.Minimize(fn, xmin, xguess, xmax, tolerance)
	case MethodBrentSafe:
		return m.MinimizeSafe(fn, xmin, xguess, xmax, tolerance)
	case MethodNewton:
		return m.Newton(fn, xmin, xguess, xmax, tolerance)
	case MethodNewtonSafe:
		return m.NewtonSafe(fn, xmin, xguess, xmax, tolerance)
	default:
		return Result{}, optimization.NewErrorf("unknown method %q", method).
			WithOperation("univariate.Solve").WithComponent(component)
	}
}
