package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/config"
	apperrors "github.com/copyleftdev/boxmin/internal/errors"
	"github.com/copyleftdev/boxmin/internal/logging"
	"github.com/copyleftdev/boxmin/internal/metrics"
	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/functions"
	"github.com/copyleftdev/boxmin/internal/optimization/restart"
	"github.com/copyleftdev/boxmin/internal/optimization/univariate"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// OptimizationState represents the state of an optimization job.
// It tracks the progress, status, and results of an optimization process.
// Fields are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID           string
	Objective    string
	Status       string
	StartTime    time.Time
	EndTime      *time.Time
	BestSolution *optimization.Solution
	Result       *optimization.OptimizationResult
	Error        *apperrors.Error
	Optimizer    optimization.Optimizer
	CancelFunc   context.CancelFunc
	LastUpdated  time.Time
}

func (s *OptimizationState) terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records job and objective metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithZapLogger sets the logger handed to the numerical packages.
func WithZapLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.zap = l
	}
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	zap     *zap.Logger
	metrics *metrics.Metrics

	// bounds the number of jobs running at once
	workers chan struct{}
	wg      sync.WaitGroup

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		zap:           zap.NewNop(),
		workers:       make(chan struct{}, max(cfg.Optimization.WorkerCount, 1)),
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Post("/univariate", s.handleUnivariate)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apperrors.New(apperrors.ParseError, "Parse error"), nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, apperrors.New(apperrors.InvalidRequest, "Invalid Request"), request.ID)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		var p StartParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.startOptimization(p)
		}
	case "optimization.status":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.optimizationStatus(p.OptimizationID)
		}
	case "optimization.cancel":
		var p idParams
		if err = decodeParams(request.Params, &p); err == nil {
			err = s.cancelOptimization(p.OptimizationID)
			result = map[string]string{"status": StatusCancelled}
		}
	case "univariate.minimize":
		var p UnivariateParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.minimizeUnivariate(r.Context(), p)
		}
	default:
		s.respondWithError(w, apperrors.New(apperrors.MethodNotFound, "Method not found"), request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, apperrors.Wrap(err, "Server error").WithOperation(request.Method), request.ID)
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// decodeParams decodes the first positional parameter into v.
func decodeParams(params []json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return apperrors.New(apperrors.InvalidParams, "missing required parameters")
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return apperrors.Errorf(apperrors.InvalidParams, "invalid parameter format: %v", err)
	}
	return nil
}

// StartParams are the parameters of optimization.start.
type StartParams struct {
	// Objective names a registered benchmark function
	Objective string `json:"objective"`
	// Bounds in [[min1, max1], [min2, max2], ...] form
	Bounds            [][]float64 `json:"bounds"`
	InitialGuess      []float64   `json:"initial_guess,omitempty"`
	BoundCheck        []bool      `json:"bound_check,omitempty"`
	GradientTolerance float64     `json:"gradient_tolerance,omitempty"`
	MaxAttempts       int         `json:"max_attempts,omitempty"`
	Seed              int64       `json:"seed,omitempty"`
}

type idParams struct {
	OptimizationID string `json:"optimization_id"`
}

// startOptimization validates the request and starts a new optimization
// job in a goroutine.
// Returns: {"optimization_id": "opt_<uuid>", "status": "pending"}
func (s *Server) startOptimization(p StartParams) (interface{}, error) {
	if p.Objective == "" {
		return nil, apperrors.New(apperrors.InvalidParams, "objective is required")
	}
	if len(p.Bounds) == 0 {
		return nil, apperrors.New(apperrors.InvalidParams, "bounds are required")
	}

	pairs := make([][2]float64, len(p.Bounds))
	for i, b := range p.Bounds {
		if len(b) != 2 {
			return nil, apperrors.New(apperrors.InvalidParams, "invalid bounds format, expected [[min1, max1], [min2, max2], ...]")
		}
		pairs[i] = [2]float64{b[0], b[1]}
	}

	obj, err := functions.Lookup(p.Objective, len(pairs))
	if err != nil {
		return nil, err
	}

	config := optimization.OptimizerConfig{
		Objective:         s.metrics.Instrument(p.Objective, obj),
		Bounds:            optimization.BoundsFromPairs(pairs),
		BoundCheck:        p.BoundCheck,
		InitialGuess:      p.InitialGuess,
		GradientTolerance: p.GradientTolerance,
		MaxAttempts:       p.MaxAttempts,
		RandomSeed:        p.Seed,
	}
	if config.GradientTolerance <= 0 {
		config.GradientTolerance = s.cfg.Optimization.GradientTolerance
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = s.cfg.Optimization.MaxAttempts
	}
	if config.RandomSeed == 0 {
		config.RandomSeed = s.cfg.Optimization.RandomSeed
	}
	if err := config.Bounds.Validate(obj.Dimension()); err != nil {
		return nil, err
	}

	// Generate a unique ID for this optimization
	id := "opt_" + uuid.New().String()

	// Create a cancellable context
	ctx, cancel := context.WithCancel(context.Background())

	controller := restart.NewController(config,
		restart.WithLogger(s.zap.With(zap.String("optimization_id", id))),
		restart.WithRecorder(s.metrics),
	)

	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Objective:   p.Objective,
		Status:      StatusPending,
		StartTime:   now,
		Optimizer:   controller,
		CancelFunc:  cancel,
		LastUpdated: now,
	}

	// Store the optimization state
	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	s.logger.Info("Optimization queued", map[string]interface{}{
		"optimization_id": id,
		"objective":       p.Objective,
		"dimension":       obj.Dimension(),
	})

	// Start optimization in a goroutine
	s.wg.Add(1)
	go s.runOptimization(ctx, state, config)

	return map[string]interface{}{
		"optimization_id": id,
		"status":          StatusPending,
	}, nil
}

// runOptimization waits for a worker slot and executes the job.
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, config optimization.OptimizerConfig) {
	defer s.wg.Done()

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return
	}

	// Update state to running
	s.optimizationsMu.Lock()
	if state.terminal() {
		s.optimizationsMu.Unlock()
		return
	}
	state.Status = StatusRunning
	state.LastUpdated = time.Now()
	s.optimizationsMu.Unlock()

	start := time.Now()
	done := s.metrics.JobStarted()
	result, err := state.Optimizer.Optimize(ctx, config)
	done(time.Since(start).Seconds())

	// Update state with results
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	now := time.Now()
	state.LastUpdated = now
	state.BestSolution = state.Optimizer.GetBestSolution()

	switch {
	case state.Status == StatusCancelled:
		// keep the cancellation, and whatever the attempts found so far
	case err != nil:
		state.Status = StatusFailed
		state.Error = apperrors.Wrap(err, "optimization failed")
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": state.ID,
			"error":           err.Error(),
		})
	default:
		state.Status = StatusCompleted
		state.Result = result
		state.BestSolution = result.BestSolution
		s.logger.Info("Optimization completed", map[string]interface{}{
			"optimization_id": state.ID,
			"attempts":        result.Iterations,
			"evaluations":     result.Evaluations,
			"value":           result.BestSolution.Value,
			"duration_ms":     time.Since(start).Milliseconds(),
		})
	}
	if state.EndTime == nil {
		state.EndTime = &now
	}
}

// optimizationStatus returns the current status and results of a job.
func (s *Server) optimizationStatus(id string) (interface{}, error) {
	if id == "" {
		return nil, apperrors.New(apperrors.InvalidParams, "optimization_id is required")
	}

	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, apperrors.New(apperrors.NotFound, "optimization not found")
	}

	response := map[string]interface{}{
		"optimization_id": state.ID,
		"objective":       state.Objective,
		"status":          state.Status,
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
	}

	// Add end time if available
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}

	if state.Error != nil {
		response["error"] = state.Error.Object()
	}

	if state.Result != nil {
		response["attempts"] = state.Result.Iterations
		response["evaluations"] = state.Result.Evaluations
		response["converged"] = state.Result.Converged
	}

	best := state.BestSolution
	if best == nil && state.Optimizer != nil {
		best = state.Optimizer.GetBestSolution()
	}
	if best != nil {
		response["best_solution"] = map[string]interface{}{
			"parameters": best.Parameters,
			"value":      best.Value,
		}
	}

	// Per-attempt history
	if state.Optimizer != nil {
		history := state.Optimizer.GetHistory()
		if len(history) > 0 {
			historyData := make([]map[string]interface{}, 0, len(history))
			for _, eval := range history {
				entry := map[string]interface{}{
					"attempt": eval.Iteration,
				}
				if eval.Solution != nil {
					entry["parameters"] = eval.Solution.Parameters
					entry["value"] = eval.Solution.Value
					entry["termination"] = eval.Status
					entry["at_boundary"] = eval.AtBoundary
				}
				if eval.Error != nil {
					entry["error"] = eval.Error.Error()
				}
				historyData = append(historyData, entry)
			}
			response["history"] = historyData
		}
	}

	return response, nil
}

// cancelOptimization cancels a pending or running job.
func (s *Server) cancelOptimization(id string) error {
	if id == "" {
		return apperrors.New(apperrors.InvalidParams, "optimization_id is required")
	}

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return apperrors.New(apperrors.NotFound, "optimization not found")
	}

	if state.terminal() {
		return apperrors.Errorf(apperrors.InvalidParams, "cannot cancel optimization with status: %s", state.Status)
	}

	// Cancel the optimization
	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.Optimizer.Stop()

	// Update state
	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	// Log the cancellation
	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	return nil
}

// UnivariateParams are the parameters of univariate.minimize.
type UnivariateParams struct {
	// Objective names a registered univariate function
	Objective string  `json:"objective"`
	Center    float64 `json:"center"`
	// Method is brent, brent_safe, newton or newton_safe
	Method    string   `json:"method"`
	Min       float64  `json:"min"`
	Guess     float64  `json:"guess"`
	Max       float64  `json:"max"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

// UnivariateResult is the response of univariate.minimize.
// Curvature is omitted when the estimate is not finite.
type UnivariateResult struct {
	Method     string   `json:"method"`
	X          float64  `json:"x"`
	Value      float64  `json:"value"`
	Curvature  *float64 `json:"curvature,omitempty"`
	Iterations int      `json:"iterations"`
	Converged  bool     `json:"converged"`
}

// minimizeUnivariate runs a one-dimensional search synchronously.
func (s *Server) minimizeUnivariate(ctx context.Context, p UnivariateParams) (*UnivariateResult, error) {
	method, err := univariate.ParseMethod(p.Method)
	if err != nil {
		return nil, err
	}
	fn, err := functions.LookupUnivariate(p.Objective, p.Center)
	if err != nil {
		return nil, err
	}

	tol := s.cfg.Optimization.Tolerance
	if p.Tolerance != nil {
		if !(*p.Tolerance > 0) {
			return nil, apperrors.Errorf(apperrors.InvalidParams, "tolerance must be positive, got %v", *p.Tolerance)
		}
		tol = *p.Tolerance
	}

	// a worker slot keeps synchronous calls within the same limit as jobs
	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m := univariate.Minimizer{
		MaxNewtonSteps: s.cfg.Optimization.MaxNewtonSteps,
		Logger:         s.zap,
	}
	res, err := m.Solve(method, s.metrics.InstrumentUnivariate(p.Objective, fn), p.Min, p.Guess, p.Max, tol)
	if err != nil {
		return nil, err
	}

	return &UnivariateResult{
		Method:     string(method),
		X:          res.X,
		Value:      res.F,
		Curvature:  res.FiniteCurvature(),
		Iterations: res.Iterations,
		Converged:  res.Converged,
	}, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, err *apperrors.Error, id interface{}) {
	fields := map[string]interface{}{
		"code":    err.Code,
		"message": err.Error(),
	}
	if len(err.Stack) > 0 {
		fields["stack"] = err.Stack
	}
	s.logger.Error("Request error", fields)

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error":   err.Object(),
		"id":      id,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels every job and waits for their goroutines to return.
// Attempts already running finish first.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.Unlock()

	s.wg.Wait()
	return nil
}

// respondREST writes v as JSON, or err with the status its code maps to.
func respondREST(w http.ResponseWriter, status int, v interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		e := apperrors.Wrap(err, "request failed")
		w.WriteHeader(e.Code.HTTPStatus())
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": e.Object(),
		})
		return
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleOptimize handles the HTTP POST /optimize endpoint for starting a new optimization
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var reqBody StartParams
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		respondREST(w, 0, nil, apperrors.Errorf(apperrors.ParseError, "Invalid request body: %v", err))
		return
	}

	result, err := s.startOptimization(reqBody)
	respondREST(w, http.StatusAccepted, result, err)
}

// handleStatus handles the HTTP GET /status/{id} endpoint for checking optimization status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.optimizationStatus(chi.URLParam(r, "id"))
	respondREST(w, http.StatusOK, result, err)
}

// handleCancel handles the HTTP DELETE /optimization/{id} endpoint for canceling an optimization
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.cancelOptimization(chi.URLParam(r, "id"))
	respondREST(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	}, err)
}

// handleUnivariate handles the HTTP POST /univariate endpoint
func (s *Server) handleUnivariate(w http.ResponseWriter, r *http.Request) {
	var reqBody UnivariateParams
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		respondREST(w, 0, nil, apperrors.Errorf(apperrors.ParseError, "Invalid request body: %v", err))
		return
	}

	result, err := s.minimizeUnivariate(r.Context(), reqBody)
	respondREST(w, http.StatusOK, result, err)
}
