// Package restart drives repeated BFGS runs, restarting from a randomized
// interior point whenever a run ends pinned to the boundary of the box.
package restart

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/bfgs"
)

const (
	// DefaultMaxAttempts is the number of BFGS runs made when the config
	// leaves MaxAttempts unset.
	DefaultMaxAttempts = 3
	// DefaultGradientTolerance is used when the config leaves
	// GradientTolerance unset.
	DefaultGradientTolerance = 1e-5
	// BoundaryTolerance is the distance to a bound below which a coordinate
	// counts as stuck on it.
	BoundaryTolerance = 1e-4

	component = "restart"
)

// Recorder observes finished runs and restarts.
type Recorder interface {
	ObserveRun(status string)
	ObserveRestart()
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger handed to the controller and its minimizer.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecorder registers a Recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// Controller implements optimization.Optimizer on top of bfgs.Minimizer.
type Controller struct {
	config    optimization.OptimizerConfig
	minimizer bfgs.Minimizer
	logger    *zap.Logger
	recorder  Recorder

	// perturbation source, owned by this controller
	rng *rand.Rand

	mu      sync.Mutex
	best    *optimization.Solution
	history []optimization.Evaluation
	cancel  context.CancelFunc
}

var _ optimization.Optimizer = (*Controller)(nil)

// NewController creates a controller. A zero RandomSeed seeds the
// perturbation source from the clock.
func NewController(config optimization.OptimizerConfig, opts ...Option) *Controller {
	c := &Controller{config: withDefaults(config)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.minimizer = bfgs.Minimizer{Logger: c.logger}
	c.logger = c.logger.Named(component)

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c.rng = rand.New(rand.NewSource(seed))
	return c
}

func withDefaults(config optimization.OptimizerConfig) optimization.OptimizerConfig {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.GradientTolerance <= 0 {
		config.GradientTolerance = DefaultGradientTolerance
	}
	return config
}

// Optimize runs BFGS from the initial guess and restarts it while the
// result sits on a checked bound, up to MaxAttempts runs in total. It
// returns the best point over all attempts.
//
// A config with a nil Objective reuses the one given to NewController. A
// non-zero RandomSeed reseeds the perturbation source, so repeated calls
// with the same config restart from the same points. The context is checked
// before each attempt only; a running attempt is never interrupted.
func (c *Controller) Optimize(ctx context.Context, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	const op = "restart.Optimize"

	if config.Objective != nil {
		c.config = withDefaults(config)
	}
	cfg := c.config

	guess, err := validate(cfg)
	if err != nil {
		return nil, err.WithOperation(op).WithComponent(component)
	}
	if cfg.RandomSeed != 0 {
		c.rng = rand.New(rand.NewSource(cfg.RandomSeed))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.best = nil
	c.history = make([]optimization.Evaluation, 0, cfg.MaxAttempts)
	c.mu.Unlock()

	var (
		evaluations int
		converged   bool
	)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.minimizer.Minimize(cfg.Objective, guess, cfg.Bounds, cfg.GradientTolerance)
		if err != nil {
			c.record(optimization.Evaluation{Iteration: attempt, Error: err})
			return nil, optimization.WrapErrorf(err, "attempt %d", attempt).
				WithOperation(op).WithComponent(component)
		}
		evaluations += res.Evaluations
		if c.recorder != nil {
			c.recorder.ObserveRun(res.Status.String())
		}

		stuck := atBoundary(res.X, cfg.Bounds, cfg.BoundCheck)
		if c.record(optimization.Evaluation{
			Iteration:  attempt,
			Solution:   &optimization.Solution{Parameters: res.X, Value: res.F},
			Status:     res.Status.String(),
			AtBoundary: stuck,
		}) {
			converged = res.Status != bfgs.IterationLimit
		}

		if !stuck || attempt >= cfg.MaxAttempts {
			c.logger.Debug("Optimization finished",
				zap.Int("attempts", attempt),
				zap.Float64("best_value", c.GetBestSolution().Value),
				zap.Bool("at_boundary", stuck),
			)
			break
		}

		c.perturb(guess, cfg.Bounds)
		if c.recorder != nil {
			c.recorder.ObserveRestart()
		}
		c.logger.Debug("Restarting away from the boundary",
			zap.Int("attempt", attempt),
			zap.Float64("value", res.F),
			zap.Float64s("point", res.X),
			zap.Float64s("restart_from", guess),
		)
	}

	return &optimization.OptimizationResult{
		BestSolution: c.GetBestSolution(),
		History:      c.GetHistory(),
		Iterations:   len(c.GetHistory()),
		Evaluations:  evaluations,
		Converged:    converged,
	}, nil
}

// GetBestSolution returns a copy of the best solution so far, or nil.
func (c *Controller) GetBestSolution() *optimization.Solution {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.best == nil {
		return nil
	}
	return &optimization.Solution{
		Parameters: append([]float64(nil), c.best.Parameters...),
		Value:      c.best.Value,
	}
}

// GetHistory returns the attempts made so far.
func (c *Controller) GetHistory() []optimization.Evaluation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]optimization.Evaluation(nil), c.history...)
}

// Stop cancels a running Optimize. It takes effect before the next attempt.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// record appends eval to the history and reports whether it became the
// best solution. Ties keep the earlier attempt.
func (c *Controller) record(eval optimization.Evaluation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, eval)
	if eval.Solution == nil {
		return false
	}
	if c.best == nil || eval.Solution.Value < c.best.Value {
		c.best = &optimization.Solution{
			Parameters: append([]float64(nil), eval.Solution.Parameters...),
			Value:      eval.Solution.Value,
		}
		return true
	}
	return false
}

// perturb draws each coordinate uniformly from the third of its range
// nearest the lower bound.
func (c *Controller) perturb(x []float64, b optimization.Bounds) {
	for i := range x {
		x[i] = b.Lower[i] + c.rng.Float64()*(b.Upper[i]-b.Lower[i])/3
	}
}

// atBoundary reports whether any checked coordinate of x lies within
// BoundaryTolerance of a bound. A nil check inspects every coordinate.
func atBoundary(x []float64, b optimization.Bounds, check []bool) bool {
	for i := range x {
		if check != nil && !check[i] {
			continue
		}
		if math.Abs(x[i]-b.Lower[i]) < BoundaryTolerance || math.Abs(x[i]-b.Upper[i]) < BoundaryTolerance {
			return true
		}
	}
	return false
}

// validate checks the config and returns the starting point, a copy of the
// initial guess or the centre of the box.
func validate(cfg optimization.OptimizerConfig) ([]float64, *optimization.Error) {
	if cfg.Objective == nil {
		return nil, optimization.NewError("objective is required")
	}
	n := cfg.Objective.Dimension()
	if n < 1 {
		return nil, optimization.NewErrorf("objective dimension must be positive, got %d", n)
	}
	if err := cfg.Bounds.Validate(n); err != nil {
		return nil, optimization.WrapError(err, "invalid bounds")
	}
	if cfg.BoundCheck != nil && len(cfg.BoundCheck) != n {
		return nil, optimization.NewErrorf("bound check has %d entries, want %d", len(cfg.BoundCheck), n)
	}

	guess := make([]float64, n)
	if cfg.InitialGuess == nil {
		for i := range guess {
			guess[i] = 0.5 * (cfg.Bounds.Lower[i] + cfg.Bounds.Upper[i])
		}
		return guess, nil
	}
	if len(cfg.InitialGuess) != n {
		return nil, optimization.NewErrorf("initial guess has %d coordinates, want %d", len(cfg.InitialGuess), n)
	}
	copy(guess, cfg.InitialGuess)
	return guess, nil
}
