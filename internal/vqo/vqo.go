// Package vqo couples a variational form, a backend and a classical
// optimizer into a variational quantum optimization loop.
package vqo

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/vqo/internal/backend"
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/metrics"
	"github.com/copyleftdev/vqo/internal/objective"
	"github.com/copyleftdev/vqo/internal/optimization"
	"github.com/copyleftdev/vqo/internal/varform"
)

const component = "vqo"

// MassTolerance is the allowed deviation of the retained exact probability
// mass from 1, on top of the mass the cutoff may have discarded.
const MassTolerance = 1e-6

// State is the lifecycle stage of an optimizer instance.
type State int

const (
	// StateConstructed means no optimization has finished yet.
	StateConstructed State = iota
	// StateOptimized means Result is available.
	StateOptimized
	// StateSolved means an optimal solution has been extracted.
	StateSolved
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateOptimized:
		return "optimized"
	case StateSolved:
		return "solved"
	default:
		return "unknown"
	}
}

// ProblemDescription carries problem-level switches.
type ProblemDescription struct {
	// Offset is the difference between the objective and the energy of
	// CostOperator.
	Offset float64 `json:"offset"`
	// DoNotCheckCostOperator skips the exhaustive CostOperator check.
	DoNotCheckCostOperator bool `json:"do_not_check_cost_operator"`
	// SmoothSchedule optimizes interpolation knots instead of every layer.
	SmoothSchedule bool `json:"smooth_schedule"`
	// Knots per rotation slot for SmoothSchedule. Zero picks min(3, Depth+1).
	Knots int `json:"knots,omitempty"`
	// CostOperator, when set, is checked against the objective.
	CostOperator *objective.DiagonalOperator `json:"-"`
}

// Options configures a VariationalQuantumOptimizer.
type Options struct {
	OptimizerParameters optimization.Parameters
	VarformDescription  varform.Description
	BackendDescription  backend.Description
	ExecuteParameters   backend.ExecuteParameters
	ProblemDescription  ProblemDescription
	// InitialPoint seeds the optimizer. Nil lets the optimizer choose.
	InitialPoint []float64
	InitialState varform.InitialState
	// Backend, when set, is used instead of resolving BackendDescription.
	Backend backend.Backend
	// BackendSeed seeds the sampling simulator.
	BackendSeed uint64
	// Resolver resolves the optimizer name. Nil uses optimization.Default.
	Resolver *optimization.Resolver
	Logger   *zap.Logger
	Metrics  *metrics.Collector
}

// Result is the outcome of Optimize.
type Result struct {
	NumOptimizerEvals int       `json:"num_optimizer_evals"`
	MinVal            float64   `json:"min_val"`
	OptParams         []float64 `json:"opt_params"`
}

// Solution is the best bit assignment found in the optimized distribution.
// On a sampling backend it also carries the histogram it was chosen from.
type Solution struct {
	Value  float64        `json:"value"`
	Bits   []int          `json:"bits"`
	Shots  int            `json:"shots,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
}

// VariationalQuantumOptimizer minimizes a raw objective over the outcomes of
// a parameterized circuit. An instance is not safe for concurrent use.
type VariationalQuantumOptimizer struct {
	obj           objective.Func
	optimizerName string
	optimizer     optimization.Optimizer
	evaluator     objective.Evaluator
	form          varform.VariationalForm
	backend       backend.Backend
	execParams    backend.ExecuteParameters
	initialPoint  []float64
	logger        *zap.Logger
	metrics       *metrics.Collector

	state  State
	result *Result
}

// New resolves the optimizer, variational form and backend and wraps obj.
// Configuration errors surface here, before any circuit is run.
func New(obj objective.Func, optimizerName string, opts Options) (*VariationalQuantumOptimizer, error) {
	const op = "New"

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("vqo")

	if obj == nil {
		return nil, vqoerrors.New(vqoerrors.KindContract, "objective must not be nil").
			WithOperation(op).WithComponent(component)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = optimization.Default()
	}
	optimizer, err := resolver.Resolve(optimizerName, opts.OptimizerParameters, logger)
	if err != nil {
		return nil, err
	}

	form, err := varform.New(opts.VarformDescription, opts.InitialState)
	if err != nil {
		return nil, err
	}

	be := opts.Backend
	if be == nil {
		be, err = backend.New(opts.BackendDescription,
			backend.WithSeed(opts.BackendSeed),
			backend.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}

	pd := opts.ProblemDescription
	if pd.CostOperator != nil && !pd.DoNotCheckCostOperator {
		if err := objective.CheckCostOperator(pd.CostOperator, obj, pd.Offset, form.NumQubits()); err != nil {
			return nil, err
		}
	}

	var evaluator objective.Evaluator
	if pd.SmoothSchedule {
		knots := pd.Knots
		if knots == 0 {
			knots = min(3, form.Depth()+1)
		}
		evaluator, err = objective.NewSmoothWrapper(obj, form, be, opts.ExecuteParameters, knots, objective.WithLogger(logger))
	} else {
		evaluator, err = objective.NewWrapper(obj, form, be, opts.ExecuteParameters, objective.WithLogger(logger))
	}
	if err != nil {
		return nil, err
	}

	if opts.InitialPoint != nil && len(opts.InitialPoint) != evaluator.NumParameters() {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "initial point has length %d, want %d",
			len(opts.InitialPoint), evaluator.NumParameters()).
			WithOperation(op).WithComponent(component)
	}

	logger.Info("Variational optimizer configured",
		zap.String("optimizer", optimizerName),
		zap.String("backend", be.Name()),
		zap.Int("num_qubits", form.NumQubits()),
		zap.Int("depth", form.Depth()),
		zap.Int("num_parameters", evaluator.NumParameters()),
		zap.Bool("smooth_schedule", pd.SmoothSchedule),
	)

	return &VariationalQuantumOptimizer{
		obj:           obj,
		optimizerName: optimizerName,
		optimizer:     optimizer,
		evaluator:     evaluator,
		form:          form,
		backend:       be,
		execParams:    opts.ExecuteParameters,
		initialPoint:  append([]float64(nil), opts.InitialPoint...),
		logger:        logger,
		metrics:       opts.Metrics,
		state:         StateConstructed,
	}, nil
}

// State returns the lifecycle stage.
func (v *VariationalQuantumOptimizer) State() State { return v.state }

// OptimizerName returns the name the optimizer was resolved from.
func (v *VariationalQuantumOptimizer) OptimizerName() string { return v.optimizerName }

// NumParameters returns the length of the optimized parameter vector.
func (v *VariationalQuantumOptimizer) NumParameters() int { return v.evaluator.NumParameters() }

// VariableBounds returns the bounds passed to the optimizer.
func (v *VariationalQuantumOptimizer) VariableBounds() [][2]float64 { return v.evaluator.VariableBounds() }

// VariationalForm returns the configured variational form.
func (v *VariationalQuantumOptimizer) VariationalForm() varform.VariationalForm { return v.form }

// Optimize runs the optimizer over the wrapped objective and records the
// result. Calling it again runs a fresh optimization and replaces the result.
func (v *VariationalQuantumOptimizer) Optimize(ctx context.Context) (*Result, error) {
	var initial []float64
	if len(v.initialPoint) > 0 {
		initial = v.initialPoint
	}

	obj := v.evaluator.Objective(ctx)
	counted := func(x []float64) (float64, error) {
		val, err := obj(x)
		if err == nil {
			v.metrics.ObserveEvaluation(v.optimizerName)
		}
		return val, err
	}

	start := time.Now()
	res, err := v.optimizer.Optimize(ctx, v.evaluator.NumParameters(), counted, v.evaluator.VariableBounds(), initial)
	if err != nil {
		v.logger.Error("Optimization failed",
			zap.String("optimizer", v.optimizerName),
			zap.Error(err),
		)
		return nil, err
	}
	elapsed := time.Since(start)

	v.result = &Result{
		NumOptimizerEvals: res.Evaluations,
		MinVal:            res.BestSolution.Value,
		OptParams:         append([]float64(nil), res.BestSolution.Parameters...),
	}
	v.state = StateOptimized
	v.metrics.ObserveRun(v.optimizerName, v.result.MinVal, elapsed)

	v.logger.Info("Optimization finished",
		zap.String("optimizer", v.optimizerName),
		zap.Int("evaluations", v.result.NumOptimizerEvals),
		zap.Float64("min_val", v.result.MinVal),
		zap.Duration("elapsed", elapsed),
	)
	return v.Result()
}

// Result returns a copy of the last optimization result.
func (v *VariationalQuantumOptimizer) Result() (*Result, error) {
	if v.result == nil {
		return nil, vqoerrors.New(vqoerrors.KindOrdering, "optimizer has not been run").
			WithOperation("Result").WithComponent(component)
	}
	r := *v.result
	r.OptParams = append([]float64(nil), v.result.OptParams...)
	return &r, nil
}

// OptimalCircuit returns the circuit built from the optimal parameters.
func (v *VariationalQuantumOptimizer) OptimalCircuit() (*varform.Circuit, error) {
	if v.result == nil {
		return nil, vqoerrors.New(vqoerrors.KindOrdering, "optimizer has not been run").
			WithOperation("OptimalCircuit").WithComponent(component)
	}
	return v.evaluator.Circuit(v.result.OptParams)
}

// OptimalSolution runs the optimal circuit once more and returns the bit
// assignment with the lowest raw objective among its outcomes. Ties go to
// the first outcome in distribution order. shots > 0 overrides the
// configured shot count of a sampling backend.
//
// For exact distributions only outcomes above objective.ProbabilityThreshold
// are candidates and their total mass must be 1 within MassTolerance plus
// the mass the cutoff could have removed.
func (v *VariationalQuantumOptimizer) OptimalSolution(ctx context.Context, shots int) (*Solution, error) {
	const op = "OptimalSolution"

	if v.result == nil {
		return nil, vqoerrors.New(vqoerrors.KindOrdering, "optimal solution requested before Optimize").
			WithOperation(op).WithComponent(component)
	}
	circuit, err := v.evaluator.Circuit(v.result.OptParams)
	if err != nil {
		return nil, err
	}

	params := v.execParams
	if shots > 0 {
		params.Shots = shots
	}
	dist, err := v.backend.Run(ctx, circuit, params)
	if err != nil {
		return nil, vqoerrors.Wrapf(err, vqoerrors.KindBackend, "backend %s failed", v.backend.Name())
	}

	candidates := dist.Outcomes()
	if dist.Exact() {
		candidates, err = retainExact(candidates)
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, vqoerrors.New(vqoerrors.KindDataConsistency, "distribution has no candidate outcomes").
			WithOperation(op).WithComponent(component)
	}

	best := -1
	bestValue := math.Inf(1)
	for i, o := range candidates {
		if val := v.obj(o.Bits); best < 0 || val < bestValue {
			best, bestValue = i, val
		}
	}

	sol := &Solution{
		Value: bestValue,
		Bits:  append([]int(nil), candidates[best].Bits...),
	}
	if sd, ok := dist.(*backend.SampledDistribution); ok {
		sol.Shots = sd.Shots()
		sol.Counts = sd.Counts()
	}
	v.state = StateSolved
	v.logger.Info("Optimal solution extracted",
		zap.Float64("value", sol.Value),
		zap.String("bits", candidates[best].Key),
		zap.Int("candidates", len(candidates)),
	)
	return sol, nil
}

// retainExact drops outcomes at or below the probability threshold and
// checks the retained mass.
func retainExact(outcomes []backend.Outcome) ([]backend.Outcome, error) {
	var (
		kept      []backend.Outcome
		mass      float64
		discarded int
	)
	for _, o := range outcomes {
		if o.Weight > objective.ProbabilityThreshold {
			kept = append(kept, o)
			mass += o.Weight
		} else {
			discarded++
		}
	}

	tol := MassTolerance + float64(discarded)*objective.ProbabilityThreshold
	if math.Abs(mass-1) > tol {
		return nil, vqoerrors.Errorf(vqoerrors.KindDataConsistency,
			"retained probability mass %.9f differs from 1 by more than %g", mass, tol).
			WithOperation("OptimalSolution").WithComponent(component)
	}
	return kept, nil
}
