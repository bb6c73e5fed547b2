package optimization

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// SequentialOptimizer minimizes one parameter at a time. For rotation-angle
// parameters the objective is a sinusoid of period 2π in each coordinate, so
// three evaluations (θ, θ+π/2, θ-π/2) determine the coordinate minimum in
// closed form. Sweeps repeat until the evaluation budget is spent or a full
// sweep improves the best value by less than tol.
type SequentialOptimizer struct {
	maxEvals int
	tol      float64
	seed     uint64
	disp     bool
	logger   *zap.Logger
}

// NewSequentialOptimizer creates a SequentialOptimizer. maxEvals bounds the
// number of objective evaluations and must be at least 1.
func NewSequentialOptimizer(maxEvals int, tol float64, seed uint64, logger *zap.Logger) *SequentialOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxEvals < 1 {
		maxEvals = 1
	}
	return &SequentialOptimizer{
		maxEvals: maxEvals,
		tol:      tol,
		seed:     seed,
		logger:   logger.Named("optimizer.sequential"),
	}
}

func newSequentialFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 1000)
	if err != nil {
		return nil, err
	}
	tol, err := params.Float("tol", 0)
	if err != nil {
		return nil, err
	}
	opt := NewSequentialOptimizer(common.maxIter, tol, common.seed, logger)
	opt.disp = common.disp
	return opt, nil
}

// Optimize implements Optimizer.
func (s *SequentialOptimizer) Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error) {
	if err := validateProblem(numParameters, objective, bounds, initialPoint); err != nil {
		return nil, err
	}

	tr := newTracker(objective, bounds, s.logger, s.disp)
	theta := startingPoint(initialPoint, bounds, newRand(s.seed))

	current, err := tr.eval(theta)
	if err != nil {
		return nil, err
	}

	sweep := 0
	for tr.evals+3 <= s.maxEvals {
		sweepStart := tr.best.Value
		for k := 0; k < numParameters && tr.evals+3 <= s.maxEvals; k++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			orig := theta[k]
			theta[k] = wrapAngle(orig + math.Pi/2)
			plus, err := tr.eval(theta)
			if err != nil {
				return nil, err
			}
			theta[k] = wrapAngle(orig - math.Pi/2)
			minus, err := tr.eval(theta)
			if err != nil {
				return nil, err
			}

			// f(orig+x) = a + r·cos(x-φ); the minimum is at x = φ+π.
			phi := math.Atan2(plus-minus, 2*current-plus-minus)
			theta[k] = clamp(wrapAngle(orig+phi+math.Pi), bounds[k])
			if current, err = tr.eval(theta); err != nil {
				return nil, err
			}
		}
		sweep++

		s.logger.Debug("Sweep finished",
			zap.Int("sweep", sweep),
			zap.Int("evaluations", tr.evals),
			zap.Float64("best", tr.best.Value),
		)

		if s.tol > 0 && sweepStart-tr.best.Value < s.tol {
			break
		}
	}

	return tr.result()
}

// wrapAngle maps x into [-π, π).
func wrapAngle(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
