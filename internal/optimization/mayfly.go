package optimization

import (
	"context"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
	"go.uber.org/zap"
)

// MayflyOptimizer wraps the external Mayfly swarm library. Mayfly takes a
// single scalar box, so the widest box enclosing all bounds is used and
// points are clamped per coordinate before evaluation.
type MayflyOptimizer struct {
	maxIters int
	popSize  int
	seed     int64
	disp     bool
	logger   *zap.Logger
}

// NewMayfly creates a Mayfly optimizer adapter. popSize below 20 is raised
// to 20, the library minimum.
func NewMayfly(maxIters, popSize int, seed int64, logger *zap.Logger) *MayflyOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIters < 1 {
		maxIters = 1
	}
	if popSize < 20 {
		popSize = 20
	}
	return &MayflyOptimizer{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		logger:   logger.Named("optimizer.mayfly"),
	}
}

func newMayflyFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 100)
	if err != nil {
		return nil, err
	}
	pop, err := params.Int("population", 20)
	if err != nil {
		return nil, err
	}
	opt := NewMayfly(common.maxIter, pop, int64(common.seed), logger)
	opt.disp = common.disp
	return opt, nil
}

// Optimize implements Optimizer. The initial point, when given, is evaluated
// before the swarm starts so it can win ties.
func (m *MayflyOptimizer) Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error) {
	if err := validateProblem(numParameters, objective, bounds, initialPoint); err != nil {
		return nil, err
	}

	tr := newTracker(objective, bounds, m.logger, m.disp)
	if initialPoint != nil {
		if _, err := tr.eval(initialPoint); err != nil {
			return nil, err
		}
	}

	lower, upper := math.Inf(1), math.Inf(-1)
	for _, b := range bounds {
		lower = math.Min(lower, b[0])
		upper = math.Max(upper, b[1])
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 {
		if tr.err == nil {
			if err := ctx.Err(); err != nil {
				tr.err = err
			}
		}
		return tr.value(x)
	}
	config.ProblemSize = numParameters
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower
	config.UpperBound = upper
	config.Rand = rand.New(rand.NewSource(m.seed))

	if _, err := mayfly.Optimize(config); err != nil && tr.err == nil {
		return nil, err
	}
	return tr.result()
}
