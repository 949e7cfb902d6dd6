package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/functions"
	"github.com/copyleftdev/boxmin/internal/optimization/restart"
)

type minimizeOptions struct {
	function string
	dim      int
	lower    []float64
	upper    []float64
	guess    []float64
	gtol     float64
	seed     int64
	attempts int
}

type attemptOutput struct {
	Attempt    int       `json:"attempt"`
	X          []float64 `json:"x,omitempty"`
	Value      float64   `json:"value,omitempty"`
	Status     string    `json:"status,omitempty"`
	AtBoundary bool      `json:"at_boundary"`
	Error      string    `json:"error,omitempty"`
}

type minimizeOutput struct {
	Function    string          `json:"function"`
	X           []float64       `json:"x"`
	Value       float64         `json:"value"`
	Attempts    int             `json:"attempts"`
	Evaluations int             `json:"evaluations"`
	Converged   bool            `json:"converged"`
	History     []attemptOutput `json:"history"`
}

func newMinimizeCmd(root *rootOptions) *cobra.Command {
	opts := &minimizeOptions{}

	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Minimize a benchmark objective inside a box",
		Long: `Runs BFGS with a bounded line search from the initial guess and restarts
from a perturbed point while the result sits on a bound.

A single --lower or --upper value applies to every dimension.`,
		Example: `  boxmin minimize --function offset --dim 2 --lower 0 --upper 10
  boxmin minimize --function rosenbrock --dim 3 --lower=-2 --upper 2 --guess=-1,1,1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runMinimize(ctx, cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.function, "function", "f", "", "Objective name (bowl, offset, rosenbrock, sphere)")
	cmd.Flags().IntVarP(&opts.dim, "dim", "n", 2, "Number of dimensions")
	cmd.Flags().Float64SliceVar(&opts.lower, "lower", []float64{-10}, "Lower bounds, one value or one per dimension")
	cmd.Flags().Float64SliceVar(&opts.upper, "upper", []float64{10}, "Upper bounds, one value or one per dimension")
	cmd.Flags().Float64SliceVar(&opts.guess, "guess", nil, "Initial guess (default centre of the box)")
	cmd.Flags().Float64Var(&opts.gtol, "gtol", restart.DefaultGradientTolerance, "Gradient convergence tolerance")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Restart perturbation seed (0 seeds from the clock)")
	cmd.Flags().IntVar(&opts.attempts, "attempts", restart.DefaultMaxAttempts, "Maximum number of BFGS runs")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func runMinimize(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *minimizeOptions) error {
	obj, err := functions.Lookup(opts.function, opts.dim)
	if err != nil {
		return err
	}
	lower, err := broadcast("lower", opts.lower, opts.dim)
	if err != nil {
		return err
	}
	upper, err := broadcast("upper", opts.upper, opts.dim)
	if err != nil {
		return err
	}

	config := optimization.OptimizerConfig{
		Objective:         obj,
		Bounds:            optimization.Bounds{Lower: lower, Upper: upper},
		InitialGuess:      opts.guess,
		GradientTolerance: opts.gtol,
		MaxAttempts:       opts.attempts,
		RandomSeed:        opts.seed,
	}

	logger := root.zapLogger(cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	controller := restart.NewController(config, restart.WithLogger(logger))
	res, err := controller.Optimize(ctx, config)
	if err != nil {
		return err
	}

	out := minimizeOutput{
		Function:    opts.function,
		X:           res.BestSolution.Parameters,
		Value:       res.BestSolution.Value,
		Attempts:    res.Iterations,
		Evaluations: res.Evaluations,
		Converged:   res.Converged,
	}
	for _, eval := range res.History {
		a := attemptOutput{Attempt: eval.Iteration, Status: eval.Status, AtBoundary: eval.AtBoundary}
		if eval.Solution != nil {
			a.X = eval.Solution.Parameters
			a.Value = eval.Solution.Value
		}
		if eval.Error != nil {
			a.Error = eval.Error.Error()
		}
		out.History = append(out.History, a)
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// broadcast expands a single bound to n dimensions.
func broadcast(name string, v []float64, n int) ([]float64, error) {
	switch len(v) {
	case n:
		return v, nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("--%s has %d values, want 1 or %d", name, len(v), n)
	}
}
