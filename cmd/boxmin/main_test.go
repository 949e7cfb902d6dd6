package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr *bytes.Buffer, err error) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return stdout, stderr, cmd.Execute()
}

func TestMinimizeCommand(t *testing.T) {
	t.Run("interior minimum", func(t *testing.T) {
		stdout, _, err := execute(t, "minimize", "--function", "bowl", "--dim", "2", "--seed", "1")
		require.NoError(t, err)

		var out minimizeOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, "bowl", out.Function)
		assert.Equal(t, 1, out.Attempts)
		assert.Less(t, out.Value, 1e-5)
		assert.InDeltaSlice(t, []float64{0.5, 1.0}, out.X, 1e-3)
		assert.True(t, out.Converged)
		require.Len(t, out.History, 1)
		assert.False(t, out.History[0].AtBoundary)
	})

	t.Run("boundary restarts", func(t *testing.T) {
		stdout, _, err := execute(t, "minimize", "-f", "offset", "-n", "2",
			"--lower", "0", "--upper", "10", "--seed", "7")
		require.NoError(t, err)

		var out minimizeOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, 3, out.Attempts)
		assert.InDelta(t, 200, out.Value, 1e-9)
		assert.InDeltaSlice(t, []float64{10, 10}, out.X, 1e-9)
		for _, a := range out.History {
			assert.True(t, a.AtBoundary)
		}
	})

	t.Run("per dimension bounds", func(t *testing.T) {
		stdout, _, err := execute(t, "minimize", "-f", "sphere", "-n", "2",
			"--lower", "1,-1", "--upper", "3,1", "--attempts", "1")
		require.NoError(t, err)

		var out minimizeOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.InDelta(t, 1, out.X[0], 1e-9)
		assert.InDelta(t, 0, out.X[1], 1e-3)
	})

	t.Run("debug logs go to stderr", func(t *testing.T) {
		stdout, stderr, err := execute(t, "--log-level", "debug", "minimize",
			"-f", "offset", "-n", "1", "--lower", "0", "--upper", "1", "--seed", "3")
		require.NoError(t, err)
		assert.Contains(t, stderr.String(), "DEBUG")
		assert.True(t, json.Valid(stdout.Bytes()))
	})
}

func TestMinimizeCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing function", []string{"minimize"}, `required flag(s) "function" not set`},
		{"unknown function", []string{"minimize", "-f", "nope"}, `unknown objective "nope"`},
		{"bound count", []string{"minimize", "-f", "sphere", "-n", "3", "--lower", "0,1"}, "--lower has 2 values, want 1 or 3"},
		{"inverted bounds", []string{"minimize", "-f", "sphere", "--lower", "1", "--upper", "0"}, "bound"},
		{"guess length", []string{"minimize", "-f", "sphere", "--guess", "1,2,3"}, "guess"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestUnivariateCommand(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		wantX float64
	}{
		{"brent parabola", []string{"-f", "parabola", "--center", "0.4", "--min=-1", "--max", "3", "--guess", "1.5", "-m", "brent"}, 0.4},
		{"default method", []string{"-f", "quartic", "--center", "-0.25", "--min=-1", "--max", "1"}, -0.25},
		{"newton", []string{"-f", "parabola", "--center", "2", "--min", "0", "--max", "5", "--guess", "4", "-m", "newton"}, 2},
		{"linear ends on the lower bound", []string{"-f", "linear", "--min=-1", "--max", "1", "-m", "brent_safe"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append([]string{"univariate"}, tt.args...)...)
			require.NoError(t, err)

			var out univariateOutput
			require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
			assert.InDelta(t, tt.wantX, out.X, 1e-4)
		})
	}

	for _, tol := range []string{"0", "-1e-6"} {
		t.Run("tolerance "+tol, func(t *testing.T) {
			stdout, _, err := execute(t, "univariate", "-f", "parabola", "--tol="+tol)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--tol must be positive")
			assert.Empty(t, stdout.String())
		})
	}

	t.Run("curvature reported", func(t *testing.T) {
		stdout, _, err := execute(t, "univariate", "-f", "parabola", "--center", "0.4",
			"--min=-1", "--max", "3", "--guess", "1.5", "-m", "brent")
		require.NoError(t, err)

		var out univariateOutput
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		require.NotNil(t, out.Curvature)
		assert.InDelta(t, 2, *out.Curvature, 1e-3)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, _, err := execute(t, "univariate", "-f", "parabola", "-m", "secant")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown method "secant"`)
	})
}
