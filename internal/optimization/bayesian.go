package optimization

import (
	"context"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/vqo/internal/optimization/acquisition"
	"github.com/copyleftdev/vqo/internal/optimization/kernels"
)

// BayesianOptimizer fits a Gaussian process to the evaluations so far and
// evaluates next where the expected improvement is largest. It suits small
// evaluation budgets on expensive objectives.
type BayesianOptimizer struct {
	maxEvals      int
	initialPoints int
	kernel        kernels.Kernel
	noiseVar      float64
	xi            float64
	seed          uint64
	disp          bool
	logger        *zap.Logger
}

// BayesianConfig holds the settings of a BayesianOptimizer.
type BayesianConfig struct {
	// MaxEvals is the total evaluation budget.
	MaxEvals int
	// InitialPoints are drawn by Latin hypercube sampling before the first
	// surrogate fit. Defaults to 10.
	InitialPoints int
	// Kernel defaults to Matérn 5/2 with unit length scale.
	Kernel   kernels.Kernel
	NoiseVar float64
	// Xi is the exploration margin of expected improvement.
	Xi   float64
	Seed uint64
}

// NewBayesianOptimizer creates a Bayesian optimizer.
func NewBayesianOptimizer(cfg BayesianConfig, logger *zap.Logger) (*BayesianOptimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEvals < 1 {
		cfg.MaxEvals = 1
	}
	if cfg.InitialPoints < 1 {
		cfg.InitialPoints = 10
	}
	if cfg.NoiseVar <= 0 {
		cfg.NoiseVar = 1e-6
	}
	if cfg.Kernel == nil {
		k, err := kernels.NewMatern52Kernel(1.0, 1.0)
		if err != nil {
			return nil, err
		}
		cfg.Kernel = k
	}
	return &BayesianOptimizer{
		maxEvals:      cfg.MaxEvals,
		initialPoints: cfg.InitialPoints,
		kernel:        cfg.Kernel,
		noiseVar:      cfg.NoiseVar,
		xi:            cfg.Xi,
		seed:          cfg.Seed,
		logger:        logger.Named("optimizer.bayesian"),
	}, nil
}

func newBayesianFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 50)
	if err != nil {
		return nil, err
	}
	initial, err := params.Int("initial_points", 10)
	if err != nil {
		return nil, err
	}
	xi, err := params.Float("xi", 0.01)
	if err != nil {
		return nil, err
	}
	lengthScale, err := params.Float("length_scale", 1.0)
	if err != nil {
		return nil, err
	}
	name, _ := params["kernel"].(string)
	kernel, err := kernels.New(name, lengthScale, 2*math.Pi)
	if err != nil {
		return nil, invalidParameter("kernel", params["kernel"])
	}

	opt, err := NewBayesianOptimizer(BayesianConfig{
		MaxEvals:      common.maxIter,
		InitialPoints: initial,
		Kernel:        kernel,
		Xi:            xi,
		Seed:          common.seed,
	}, logger)
	if err != nil {
		return nil, err
	}
	opt.disp = common.disp
	return opt, nil
}

// Optimize implements Optimizer. A given initial point is the first of the
// initial design.
func (bo *BayesianOptimizer) Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error) {
	if err := validateProblem(numParameters, objective, bounds, initialPoint); err != nil {
		return nil, err
	}

	rng := newRand(bo.seed)
	tr := newTracker(objective, bounds, bo.logger, bo.disp)

	nInitial := min(bo.initialPoints, bo.maxEvals)
	design := latinHypercubeSample(nInitial, bounds, rng)
	if initialPoint != nil {
		design[0] = startingPoint(initialPoint, bounds, rng)
	}

	for _, x := range design {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := tr.eval(x); err != nil {
			return nil, err
		}
	}

	gp := NewGP(bo.kernel, bo.noiseVar, bo.logger)
	ei := acquisition.NewExpectedImprovement(math.Inf(1), bo.xi)

	for tr.evals < bo.maxEvals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		X, y := trainingData(tr.history, numParameters)
		if err := gp.Fit(X, y); err != nil {
			return nil, err
		}
		ei.UpdateBest(tr.best.Value)

		next := bo.maximizeAcquisition(gp, ei, tr.best.Parameters, bounds, rng)
		if _, err := tr.eval(next); err != nil {
			return nil, err
		}
	}

	return tr.result()
}

func trainingData(history []Evaluation, nDims int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(len(history), nDims, nil)
	y := mat.NewVecDense(len(history), nil)
	for i, e := range history {
		X.SetRow(i, e.Solution.Parameters)
		y.SetVec(i, e.Solution.Value)
	}
	return X, y
}

// maximizeAcquisition runs a short Nelder-Mead search on -EI from the
// incumbent and a handful of random starts.
func (bo *BayesianOptimizer) maximizeAcquisition(gp *GP, ei *acquisition.ExpectedImprovement, incumbent []float64, bounds [][2]float64, rng *rand.Rand) []float64 {
	nDims := len(bounds)

	negEI := func(x []float64) float64 {
		p := make([]float64, nDims)
		for i := range x {
			p[i] = clamp(x[i], bounds[i])
		}
		mu, variance, err := gp.Predict(mat.NewDense(1, nDims, p))
		if err != nil {
			return math.Inf(1)
		}
		return -ei.Compute(mu.AtVec(0), math.Sqrt(variance.AtVec(0)))
	}

	nStarts := 5 + int(5*math.Sqrt(float64(nDims)))
	starts := make([][]float64, nStarts)
	starts[0] = append([]float64(nil), incumbent...)
	for i := 1; i < nStarts; i++ {
		starts[i] = startingPoint(nil, bounds, rng)
	}

	problem := optimize.Problem{Func: negEI}
	settings := &optimize.Settings{
		FuncEvaluations: 50 * nDims,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	best := starts[1]
	bestVal := negEI(best)
	for _, start := range starts {
		method := &optimize.NelderMead{
			Reflection:  1.0,
			Expansion:   2.0,
			Contraction: 0.5,
			Shrink:      0.5,
			SimplexSize: 0.2,
		}
		result, err := optimize.Minimize(problem, start, settings, method)
		if err != nil || result == nil {
			continue
		}
		if result.F < bestVal {
			bestVal = result.F
			best = result.X
		}
	}

	out := make([]float64, nDims)
	for i := range out {
		out[i] = clamp(best[i], bounds[i])
	}
	return out
}
