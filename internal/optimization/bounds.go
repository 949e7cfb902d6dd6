package optimization

// Bounds holds per-dimension box constraints. Optimizers read Bounds but
// never modify them.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// BoundsFromPairs converts the [[min, max], ...] form used on the wire.
func BoundsFromPairs(pairs [][2]float64) Bounds {
	b := Bounds{
		Lower: make([]float64, len(pairs)),
		Upper: make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		b.Lower[i] = p[0]
		b.Upper[i] = p[1]
	}
	return b
}

// Dimension returns the number of constrained coordinates.
func (b Bounds) Dimension() int {
	return len(b.Lower)
}

// Validate checks that both sides have n entries and lower <= upper
// everywhere.
func (b Bounds) Validate(n int) error {
	const op = "Bounds.Validate"

	if len(b.Lower) != n || len(b.Upper) != n {
		return NewErrorf("bounds have %d lower and %d upper entries, want %d",
			len(b.Lower), len(b.Upper), n).WithOperation(op)
	}
	for i := range b.Lower {
		if !(b.Lower[i] <= b.Upper[i]) {
			return NewErrorf("lower bound %v exceeds upper bound %v in dimension %d",
				b.Lower[i], b.Upper[i], i).WithOperation(op)
		}
	}
	return nil
}

// Clamp moves every coordinate of x into its interval, in place.
func (b Bounds) Clamp(x []float64) {
	for i := range x {
		x[i] = Clamp(x[i], b.Lower[i], b.Upper[i])
	}
}

// Contains reports whether x lies inside the box.
func (b Bounds) Contains(x []float64) bool {
	for i := range x {
		if x[i] < b.Lower[i] || x[i] > b.Upper[i] {
			return false
		}
	}
	return true
}

// Clamp returns x limited to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
