package optimization

import (
	"context"
)

// Optimizer defines the interface for bounded multi-dimensional minimizers
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns one evaluation per completed attempt
	GetHistory() []Evaluation

	// Stop asks a running Optimize to return before its next attempt
	Stop()
}

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Objective function to minimize
	Objective Objective

	// Box constraints, one interval per dimension
	Bounds Bounds

	// Coordinates inspected for boundary-stuck results; nil inspects all
	BoundCheck []bool

	// Starting point; nil starts from the centre of the bounds
	InitialGuess []float64

	// Gradient convergence tolerance
	GradientTolerance float64

	// Maximum number of BFGS runs
	MaxAttempts int

	// Random seed for restart perturbation, 0 seeds from the clock
	RandomSeed int64
}

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation records the outcome of one attempt
type Evaluation struct {
	Iteration int
	Solution  *Solution
	// Status is the termination reason of the attempt
	Status string
	// AtBoundary is set when a checked coordinate ended on a bound
	AtBoundary bool
	Error      error
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	// Iterations is the number of attempts made
	Iterations int
	// Evaluations counts objective calls across all attempts
	Evaluations int
	// Converged is false when the best attempt stopped on its iteration cap
	Converged bool
}
