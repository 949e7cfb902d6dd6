package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/boxmin/internal/optimization/functions"
	"github.com/copyleftdev/boxmin/internal/optimization/univariate"
)

type univariateOptions struct {
	function string
	center   float64
	method   string
	min      float64
	guess    float64
	max      float64
	tol      float64
}

type univariateOutput struct {
	Function   string   `json:"function"`
	Method     string   `json:"method"`
	X          float64  `json:"x"`
	Value      float64  `json:"value"`
	Curvature  *float64 `json:"curvature,omitempty"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
}

func newUnivariateCmd(root *rootOptions) *cobra.Command {
	opts := &univariateOptions{}

	cmd := &cobra.Command{
		Use:   "univariate",
		Short: "Minimize a one-dimensional objective on an interval",
		Long: `Runs one of the one-dimensional methods on [min, max] from the guess:

  brent        Brent's method on a bracket built around the guess
  brent_safe   as brent, returning an end point whose value is within tol
  newton       safeguarded Newton-Raphson on the derivative
  newton_safe  as newton, returning an end point whose value is within tol`,
		Example: `  boxmin univariate --function parabola --center 0.4 --min=-1 --max 3 --guess 1.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !(opts.tol > 0) {
				return fmt.Errorf("--tol must be positive, got %v", opts.tol)
			}
			method, err := univariate.ParseMethod(opts.method)
			if err != nil {
				return err
			}
			fn, err := functions.LookupUnivariate(opts.function, opts.center)
			if err != nil {
				return err
			}

			logger := root.zapLogger(cmd.ErrOrStderr())
			defer func() { _ = logger.Sync() }()

			m := univariate.Minimizer{Logger: logger}
			res, err := m.Solve(method, fn, opts.min, opts.guess, opts.max, opts.tol)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), univariateOutput{
				Function:   opts.function,
				Method:     string(method),
				X:          res.X,
				Value:      res.F,
				Curvature:  res.FiniteCurvature(),
				Iterations: res.Iterations,
				Converged:  res.Converged,
			})
		},
	}

	cmd.Flags().StringVarP(&opts.function, "function", "f", "", "Objective name (linear, parabola, quartic)")
	cmd.Flags().Float64Var(&opts.center, "center", 0, "Centre of the objective")
	cmd.Flags().StringVarP(&opts.method, "method", "m", string(univariate.MethodBrentSafe), "Method (brent, brent_safe, newton, newton_safe)")
	cmd.Flags().Float64Var(&opts.min, "min", -1, "Lower end of the interval")
	cmd.Flags().Float64Var(&opts.guess, "guess", 0, "Initial guess inside the interval")
	cmd.Flags().Float64Var(&opts.max, "max", 1, "Upper end of the interval")
	cmd.Flags().Float64Var(&opts.tol, "tol", 1e-6, "Convergence tolerance")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}
