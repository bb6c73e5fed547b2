package optimization

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"
)

// RandomSearch evaluates a Latin hypercube design over the bounds and keeps
// the best point. The initial point, when given, is evaluated first.
type RandomSearch struct {
	samples int
	seed    uint64
	disp    bool
	logger  *zap.Logger
}

// NewRandomSearch creates a RandomSearch with the given number of samples.
func NewRandomSearch(samples int, seed uint64, logger *zap.Logger) *RandomSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	if samples < 1 {
		samples = 1
	}
	return &RandomSearch{
		samples: samples,
		seed:    seed,
		logger:  logger.Named("optimizer.random"),
	}
}

func newRandomSearchFromParameters(params Parameters, logger *zap.Logger) (Optimizer, error) {
	common, err := parseCommon(params, 100)
	if err != nil {
		return nil, err
	}
	opt := NewRandomSearch(common.maxIter, common.seed, logger)
	opt.disp = common.disp
	return opt, nil
}

// Optimize implements Optimizer.
func (r *RandomSearch) Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error) {
	if err := validateProblem(numParameters, objective, bounds, initialPoint); err != nil {
		return nil, err
	}

	tr := newTracker(objective, bounds, r.logger, r.disp)
	rng := newRand(r.seed)

	n := r.samples
	if initialPoint != nil {
		if _, err := tr.eval(initialPoint); err != nil {
			return nil, err
		}
		n--
	}

	for _, x := range latinHypercubeSample(n, bounds, rng) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := tr.eval(x); err != nil {
			return nil, err
		}
	}

	return tr.result()
}

// latinHypercubeSample generates n points with exactly one sample in each of
// n equal strata per dimension.
func latinHypercubeSample(n int, bounds [][2]float64, rng *rand.Rand) [][]float64 {
	if n < 1 {
		return nil
	}
	nDims := len(bounds)
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, nDims)
	}

	strata := make([]float64, n)
	for i := 0; i < nDims; i++ {
		for j := 0; j < n; j++ {
			strata[j] = (float64(j) + rng.Float64()) / float64(n)
		}
		rng.Shuffle(n, func(k, l int) {
			strata[k], strata[l] = strata[l], strata[k]
		})

		lo, hi := bounds[i][0], bounds[i][1]
		for j := 0; j < n; j++ {
			samples[j][i] = lo + strata[j]*(hi-lo)
		}
	}
	return samples
}
