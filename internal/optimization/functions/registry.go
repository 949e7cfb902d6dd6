package functions

import (
	"sort"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

var multivariate = map[string]func(n int) optimization.Objective{
	"sphere":     func(n int) optimization.Objective { return Sphere{N: n} },
	"bowl":       func(n int) optimization.Objective { return NewBowl(n) },
	"rosenbrock": func(n int) optimization.Objective { return Rosenbrock{N: n} },
	"offset":     func(n int) optimization.Objective { return Offset{N: n, Shift: 20} },
}

var univariate = map[string]func(c float64) optimization.Differentiable{
	"parabola": func(c float64) optimization.Differentiable { return Parabola{Center: c} },
	"quartic":  func(c float64) optimization.Differentiable { return Quartic{Center: c} },
	"linear":   func(c float64) optimization.Differentiable { return Linear{Offset: c} },
}

// Lookup returns the named multivariate objective of dimension n.
func Lookup(name string, n int) (optimization.Objective, error) {
	const op = "functions.Lookup"

	ctor, ok := multivariate[name]
	if !ok {
		return nil, optimization.NewErrorf("unknown objective %q", name).WithOperation(op)
	}
	if n < 1 {
		return nil, optimization.NewErrorf("dimension must be at least 1, got %d", n).WithOperation(op)
	}
	if name == "rosenbrock" && n < 2 {
		return nil, optimization.NewError("rosenbrock needs at least 2 dimensions").WithOperation(op)
	}
	return ctor(n), nil
}

// LookupUnivariate returns the named univariate objective centred at c.
func LookupUnivariate(name string, c float64) (optimization.Differentiable, error) {
	ctor, ok := univariate[name]
	if !ok {
		return nil, optimization.NewErrorf("unknown univariate objective %q", name).
			WithOperation("functions.LookupUnivariate")
	}
	return ctor(c), nil
}

// Names returns the registered multivariate and univariate names, sorted.
func Names() (multi, uni []string) {
	for name := range multivariate {
		multi = append(multi, name)
	}
	for name := range univariate {
		uni = append(uni, name)
	}
	sort.Strings(multi)
	sort.Strings(uni)
	return multi, uni
}
