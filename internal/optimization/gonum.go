package optimization

import (
	"context"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// GonumOptimizer adapts a derivative-free gonum/optimize method. Points are
// clamped into bounds before evaluation since gonum methods are unbounded.
type GonumOptimizer struct {
	name     string
	method   func() optimize.Method
	maxEvals int
	seed     uint64
	disp     bool
	logger   *zap.Logger
}

// NewNelderMead creates a Nelder-Mead simplex optimizer.
func NewNelderMead(maxEvals int, step float64, logger *zap.Logger) *GonumOptimizer {
	if step <= 0 {
		step = 0.2
	}
	return newGonumOptimizer("NelderMead", maxEvals, 0, logger, func() optimize.Method {
		return &optimize.NelderMead{
			Reflection:  1.0,
			Expansion:   2.0,
			Contraction: 0.5,
			Shrink:      0.5,
			SimplexSize: step,
		}
	})
}

// NewCMAES creates a CMA-ES optimizer with Cholesky covariance updates.
func NewCMAES(maxEvals, population int, step float64, seed uint64, logger *zap.Logger) *GonumOptimizer {
	return newGonumOptimizer("CMAES", maxEvals, seed, logger, func() optimize.Method {
		return &optimize.CmaEsChol{
			InitStepSize: step,
			Population:   population,
			Src:          newRand(seed),
		}
	})
}

func newGonumOptimizer(name string, maxEvals int, seed uint64, logger *zap.Logger, method func() optimize.Method) *GonumOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxEvals < 1 {
		maxEvals = 1
	}
	return &GonumOptimizer{
		name:     name,
		method:   method,
		maxEvals: maxEvals,
		seed:     seed,
		logger:   logger.Named("optimizer." + name),
	}
}

func newNelderMeadFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 1000)
	if err != nil {
		return nil, err
	}
	step, err := params.Float("step", 0.2)
	if err != nil {
		return nil, err
	}
	opt := NewNelderMead(common.maxIter, step, logger)
	opt.seed = common.seed
	opt.disp = common.disp
	return opt, nil
}

func newCMAESFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 1000)
	if err != nil {
		return nil, err
	}
	population, err := params.Int("population", 0)
	if err != nil {
		return nil, err
	}
	step, err := params.Float("step", 0.5)
	if err != nil {
		return nil, err
	}
	if population < 0 || step < 0 {
		return nil, invalidParameter("population/step", []any{population, step})
	}
	opt := NewCMAES(common.maxIter, population, step, common.seed, logger)
	opt.disp = common.disp
	return opt, nil
}

// Optimize implements Optimizer.
func (g *GonumOptimizer) Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error) {
	if err := validateProblem(numParameters, objective, bounds, initialPoint); err != nil {
		return nil, err
	}

	tr := newTracker(objective, bounds, g.logger, g.disp)
	start := startingPoint(initialPoint, bounds, newRand(g.seed))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if tr.err == nil {
				if err := ctx.Err(); err != nil {
					tr.err = err
				}
			}
			return tr.value(x)
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: g.maxEvals,
		Converger:       &abortConverger{tr: tr, next: &optimize.FunctionConverge{Absolute: 1e-8, Iterations: 100}},
		Concurrent:      1,
	}

	result, err := optimize.Minimize(problem, start, settings, g.method())
	if tr.err != nil {
		return nil, tr.err
	}
	if err != nil && tr.best == nil {
		return nil, err
	}
	if result != nil {
		g.logger.Debug("Minimize finished",
			zap.String("status", result.Status.String()),
			zap.Int("evaluations", tr.evals),
		)
	}
	return tr.result()
}

// abortConverger stops the gonum run as soon as the tracker has latched an
// error, and otherwise defers to next.
type abortConverger struct {
	tr   *tracker
	next optimize.Converger
}

func (c *abortConverger) Init(dim int) { c.next.Init(dim) }

func (c *abortConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.tr.err != nil {
		return optimize.Failure
	}
	return c.next.Converged(loc)
}
