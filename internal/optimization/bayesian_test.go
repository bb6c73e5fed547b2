package optimization

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/optimization/kernels"
)

func TestNewBayesianOptimizerDefaults(t *testing.T) {
	opt, err := NewBayesianOptimizer(BayesianConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, opt.maxEvals)
	assert.Equal(t, 10, opt.initialPoints)
	assert.Equal(t, 1e-6, opt.noiseVar)
	assert.IsType(t, &kernels.Matern52Kernel{}, opt.kernel)
}

func TestBayesianFromParameters(t *testing.T) {
	opt, err := Resolve("BayesianOptimization", Parameters{
		"maxiter":        20,
		"initial_points": 4,
		"kernel":         "periodic",
		"xi":             0.1,
	}, nil)
	require.NoError(t, err)

	bo := opt.(*BayesianOptimizer)
	assert.Equal(t, 20, bo.maxEvals)
	assert.Equal(t, 4, bo.initialPoints)
	assert.Equal(t, 0.1, bo.xi)
	assert.IsType(t, &kernels.PeriodicKernel{}, bo.kernel)

	_, err = Resolve("BayesianOptimization", Parameters{"kernel": "linear"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))
}

func TestTrainingData(t *testing.T) {
	history := []Evaluation{
		{Iteration: 1, Solution: &Solution{Parameters: []float64{1, 2}, Value: 3}},
		{Iteration: 2, Solution: &Solution{Parameters: []float64{4, 5}, Value: 6}},
	}

	X, y := trainingData(history, 2)
	r, c := X.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{4, 5}, X.RawRowView(1))
	assert.Equal(t, 3.0, y.AtVec(0))
	assert.Equal(t, 6.0, y.AtVec(1))
}

func TestBayesianOptimizer(t *testing.T) {
	bounds := uniformBounds(2, -2, 2)
	opt, err := NewBayesianOptimizer(BayesianConfig{
		MaxEvals:      25,
		InitialPoints: 8,
		Seed:          7,
	}, nil)
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, bounds, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, res.Evaluations)
	assert.Len(t, res.History, 25)
	assertWithinBounds(t, res.BestSolution.Parameters, bounds)
	assert.Less(t, res.BestSolution.Value, 0.5)

	want, _ := testObjectiveFunc(res.BestSolution.Parameters)
	assert.Equal(t, want, res.BestSolution.Value)
}

func TestBayesianOptimizerPeriodicKernel(t *testing.T) {
	bounds := uniformBounds(1, -math.Pi, math.Pi)
	k, err := kernels.NewPeriodicKernel(1.0, 2*math.Pi, 1.0)
	require.NoError(t, err)

	opt, err := NewBayesianOptimizer(BayesianConfig{
		MaxEvals:      15,
		InitialPoints: 5,
		Kernel:        k,
		Seed:          3,
	}, nil)
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), 1, testSinusoidFunc, bounds, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Evaluations)
	assert.Less(t, res.BestSolution.Value, -0.8)
}

func TestBayesianOptimizerInitialPoint(t *testing.T) {
	bounds := uniformBounds(2, -1, 1)
	opt, err := NewBayesianOptimizer(BayesianConfig{MaxEvals: 3, InitialPoints: 3}, nil)
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, bounds, []float64{0.25, -0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -0.5}, res.History[0].Solution.Parameters)
}

func TestBayesianOptimizerBudgetBelowInitialDesign(t *testing.T) {
	opt, err := NewBayesianOptimizer(BayesianConfig{MaxEvals: 4, InitialPoints: 10}, nil)
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, uniformBounds(2, -1, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Evaluations)
}

func TestBayesianOptimizerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt, err := NewBayesianOptimizer(BayesianConfig{MaxEvals: 10}, nil)
	require.NoError(t, err)

	res, err := opt.Optimize(ctx, 1, testObjectiveFunc, uniformBounds(1, -1, 1), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
