package optimization

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", NewError("bad input"), "bad input"},
		{"with op", NewError("bad input").WithOperation("bfgs.Minimize"), "bfgs.Minimize: bad input"},
		{"with component", NewError("bad input").WithComponent("bfgs"), "bfgs: bad input"},
		{"with both", NewErrorf("got %d", 3).WithOperation("op").WithComponent("c"), "c: op: got 3"},
		{"wrapped", WrapError(base, "failed"), "failed: boom"},
		{"wrapped with op", WrapErrorf(base, "attempt %d", 2).WithOperation("restart.Optimize"), "restart.Optimize: attempt 2: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
	assert.Nil(t, WrapError(nil, "x"))
	assert.Nil(t, WrapErrorf(nil, "x %d", 1))
}

func TestIsOptimizationError(t *testing.T) {
	inner := NewError("inner").WithComponent("linesearch")
	wrapped := fmt.Errorf("outer: %w", inner)

	got, ok := IsOptimizationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "linesearch", got.Component)

	_, ok = IsOptimizationError(errors.New("plain"))
	assert.False(t, ok)
}

func TestNumericalFailure(t *testing.T) {
	x := []float64{1, 2}
	_, err := Value("numdiff.Gradient", Func{N: 2, F: func([]float64) float64 { return math.Inf(1) }}, x)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFinite)

	wrapped := WrapError(err, "attempt 1")
	nf, ok := IsNumericalFailure(wrapped)
	require.True(t, ok)
	assert.Equal(t, "numdiff.Gradient", nf.Op)
	assert.Equal(t, []float64{1, 2}, nf.Input)

	// the failure keeps its own copy of the input
	x[0] = 99
	assert.Equal(t, 1.0, nf.Input[0])

	_, ok = IsNumericalFailure(NewError("other"))
	assert.False(t, ok)
}

func TestEvaluationHelpers(t *testing.T) {
	f, err := UnivariateValue("op", UnivariateFunc(func(x float64) float64 { return x * x }), 3)
	require.NoError(t, err)
	assert.Equal(t, 9.0, f)

	_, err = UnivariateValue("op", UnivariateFunc(func(float64) float64 { return math.NaN() }), 3)
	assert.ErrorIs(t, err, ErrNonFinite)

	_, _, _, err = Derivatives("univariate.Newton", badSecond{}, 0.5)
	nf, ok := IsNumericalFailure(err)
	require.True(t, ok)
	assert.Len(t, nf.Values, 3)
	assert.Equal(t, []float64{0.5}, nf.Input)
}

type badSecond struct{}

func (badSecond) Evaluate(x float64) float64 { return x }

func (badSecond) EvaluateWithDerivatives(x float64) (float64, float64, float64) {
	return x, 1, math.Inf(-1)
}

func TestBounds(t *testing.T) {
	b := BoundsFromPairs([][2]float64{{0, 1}, {-2, 2}})
	assert.Equal(t, 2, b.Dimension())
	assert.Equal(t, []float64{0, -2}, b.Lower)
	assert.Equal(t, []float64{1, 2}, b.Upper)

	assert.True(t, b.Contains([]float64{0, 2}))
	assert.False(t, b.Contains([]float64{1.5, 0}))

	x := []float64{-3, 5}
	b.Clamp(x)
	assert.Equal(t, []float64{0, 2}, x)

	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(7, 0, 1))
}

func TestBoundsValidate(t *testing.T) {
	tests := []struct {
		name    string
		bounds  Bounds
		n       int
		wantErr string
	}{
		{"valid", BoundsFromPairs([][2]float64{{0, 1}}), 1, ""},
		{"degenerate interval", BoundsFromPairs([][2]float64{{1, 1}}), 1, ""},
		{"wrong dimension", BoundsFromPairs([][2]float64{{0, 1}}), 2, "want 2"},
		{"inverted", BoundsFromPairs([][2]float64{{0, 1}, {3, 2}}), 2, "exceeds upper bound"},
		{"nan", BoundsFromPairs([][2]float64{{math.NaN(), 1}}), 1, "exceeds upper bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bounds.Validate(tt.n)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			e, ok := IsOptimizationError(err)
			require.True(t, ok)
			assert.Equal(t, "Bounds.Validate", e.Op)
		})
	}
}
