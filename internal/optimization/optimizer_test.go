package optimization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

func TestSequentialOptimizerSinusoid(t *testing.T) {
	n := 3
	bounds := uniformBounds(n, -math.Pi, math.Pi)
	opt := NewSequentialOptimizer(1+3*n, 0, 1, nil)

	res, err := opt.Optimize(context.Background(), n, testSinusoidFunc, bounds, []float64{0.3, -1.2, 2.0})
	require.NoError(t, err)

	assert.InDelta(t, -float64(n), res.BestSolution.Value, 1e-9)
	assert.Equal(t, 1+3*n, res.Evaluations)
	for _, v := range res.BestSolution.Parameters {
		assert.InDelta(t, math.Pi, math.Abs(v), 1e-9)
	}
}

func TestSequentialOptimizerBudget(t *testing.T) {
	tests := []struct {
		name     string
		maxEvals int
		n        int
		want     int
	}{
		{"single evaluation", 1, 4, 1},
		{"below one step", 3, 4, 1},
		{"one step", 4, 4, 4},
		{"fifty on thirty-two", 50, 32, 49},
		{"several sweeps", 100, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bounds := uniformBounds(tt.n, -math.Pi, math.Pi)
			opt := NewSequentialOptimizer(tt.maxEvals, 0, 7, nil)

			res, err := opt.Optimize(context.Background(), tt.n, testSinusoidFunc, bounds, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Evaluations)
			assert.Len(t, res.BestSolution.Parameters, tt.n)
			assert.Len(t, res.History, tt.want)
			assertWithinBounds(t, res.BestSolution.Parameters, bounds)
		})
	}
}

func TestSequentialOptimizerTolerance(t *testing.T) {
	n := 2
	opt := NewSequentialOptimizer(1000, 1e-6, 3, nil)
	res, err := opt.Optimize(context.Background(), n, testSinusoidFunc, uniformBounds(n, -math.Pi, math.Pi), nil)
	require.NoError(t, err)

	// The first sweep reaches the minimum, the second sees no improvement.
	assert.Equal(t, 1+2*3*n, res.Evaluations)
}

func TestOptimizerBestMatchesObjective(t *testing.T) {
	bounds := uniformBounds(2, -5, 5)
	optimizers := map[string]Optimizer{
		"sequential": NewSequentialOptimizer(40, 0, 1, nil),
		"random":     NewRandomSearch(40, 1, nil),
		"neldermead": NewNelderMead(40, 0.5, nil),
		"cmaes":      NewCMAES(40, 0, 0.5, 1, nil),
	}

	for name, opt := range optimizers {
		t.Run(name, func(t *testing.T) {
			res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, bounds, nil)
			require.NoError(t, err)
			require.NotNil(t, res.BestSolution)
			assert.GreaterOrEqual(t, res.Evaluations, 1)
			assert.LessOrEqual(t, res.Evaluations, 40)
			assertWithinBounds(t, res.BestSolution.Parameters, bounds)

			want, _ := testObjectiveFunc(res.BestSolution.Parameters)
			assert.Equal(t, want, res.BestSolution.Value)
			for _, e := range res.History {
				assert.GreaterOrEqual(t, e.Solution.Value, res.BestSolution.Value)
			}
		})
	}
}

func TestNelderMeadConverges(t *testing.T) {
	bounds := uniformBounds(2, -5, 5)
	opt := NewNelderMead(500, 0.5, nil)

	res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, bounds, []float64{2, -3})
	require.NoError(t, err)
	assert.Less(t, res.BestSolution.Value, 1e-4)
}

func TestCMAESConverges(t *testing.T) {
	bounds := uniformBounds(2, -5, 5)
	opt := NewCMAES(2000, 0, 0.5, 42, nil)

	res, err := opt.Optimize(context.Background(), 2, testObjectiveFunc, bounds, []float64{1, 1})
	require.NoError(t, err)
	assert.Less(t, res.BestSolution.Value, 1e-2)
}

func TestMayflyOptimizer(t *testing.T) {
	bounds := uniformBounds(3, -10, 10)
	opt := NewMayfly(20, 20, 42, nil)

	res, err := opt.Optimize(context.Background(), 3, testObjectiveFunc, bounds, nil)
	require.NoError(t, err)
	assert.Len(t, res.BestSolution.Parameters, 3)
	assert.GreaterOrEqual(t, res.Evaluations, 1)
	assertWithinBounds(t, res.BestSolution.Parameters, bounds)

	want, _ := testObjectiveFunc(res.BestSolution.Parameters)
	assert.Equal(t, want, res.BestSolution.Value)
}

func TestInitialPointIsUsed(t *testing.T) {
	bounds := uniformBounds(2, -1, 1)
	start := []float64{0.25, -0.5}

	var first []float64
	objective := func(x []float64) (float64, error) {
		if first == nil {
			first = append([]float64(nil), x...)
		}
		return testObjectiveFunc(x)
	}

	_, err := NewSequentialOptimizer(10, 0, 1, nil).Optimize(context.Background(), 2, objective, bounds, start)
	require.NoError(t, err)
	assertFloat64SlicesEqual(t, first, start, 0)

	// Out-of-bounds initial points are clamped.
	first = nil
	_, err = NewRandomSearch(3, 1, nil).Optimize(context.Background(), 2, objective, bounds, []float64{4, -4})
	require.NoError(t, err)
	assertFloat64SlicesEqual(t, first, []float64{1, -1}, 0)
}

func TestObjectiveErrorAbortsRun(t *testing.T) {
	cause := fmt.Errorf("backend unavailable")
	calls := 0
	objective := func(x []float64) (float64, error) {
		calls++
		if calls == 3 {
			return 0, cause
		}
		return testObjectiveFunc(x)
	}

	optimizers := map[string]func() Optimizer{
		"sequential": func() Optimizer { return NewSequentialOptimizer(50, 0, 1, nil) },
		"random":     func() Optimizer { return NewRandomSearch(50, 1, nil) },
		"neldermead": func() Optimizer { return NewNelderMead(50, 0.5, nil) },
		"cmaes":      func() Optimizer { return NewCMAES(50, 0, 0.5, 1, nil) },
	}

	for name, build := range optimizers {
		t.Run(name, func(t *testing.T) {
			calls = 0
			res, err := build().Optimize(context.Background(), 2, objective, uniformBounds(2, -1, 1), nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, cause))
			assert.True(t, errors.Is(err, vqoerrors.ErrEvaluation))
			assert.Equal(t, 3, calls)
		})
	}
}

func TestOptimizeValidatesProblem(t *testing.T) {
	opt := NewSequentialOptimizer(10, 0, 1, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		n         int
		objective ObjectiveFunction
		bounds    [][2]float64
		initial   []float64
	}{
		{"no parameters", 0, testObjectiveFunc, nil, nil},
		{"nil objective", 1, nil, uniformBounds(1, 0, 1), nil},
		{"bounds mismatch", 2, testObjectiveFunc, uniformBounds(1, 0, 1), nil},
		{"inverted bounds", 1, testObjectiveFunc, [][2]float64{{1, 0}}, nil},
		{"initial point mismatch", 2, testObjectiveFunc, uniformBounds(2, 0, 1), []float64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := opt.Optimize(ctx, tt.n, tt.objective, tt.bounds, tt.initial)
			require.Error(t, err)
			assert.True(t, errors.Is(err, vqoerrors.ErrContractViolation))
		})
	}
}

func TestOptimizeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSequentialOptimizer(50, 0, 1, nil).Optimize(ctx, 2, testObjectiveFunc, uniformBounds(2, -1, 1), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatinHypercubeSample(t *testing.T) {
	bounds := [][2]float64{{0, 1}, {-2, 2}}
	samples := latinHypercubeSample(10, bounds, newRand(5))
	require.Len(t, samples, 10)

	for d := range bounds {
		strata := make(map[int]bool)
		for _, s := range samples {
			u := (s[d] - bounds[d][0]) / (bounds[d][1] - bounds[d][0])
			strata[int(u*10)] = true
		}
		assert.Len(t, strata, 10, "dimension %d", d)
	}
	assert.Nil(t, latinHypercubeSample(0, bounds, newRand(5)))
}

func TestWrapAngle(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, -math.Pi},
		{-math.Pi, -math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, wrapAngle(tt.in), 1e-12, "wrapAngle(%v)", tt.in)
	}
}

func TestParameters(t *testing.T) {
	p := Parameters{"maxiter": 50.0, "tol": 1, "disp": true, "bad": "x", "frac": 1.5}

	n, err := p.Int("maxiter", 10)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	n, err = p.Int("missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	f, err := p.Float("tol", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	b, err := p.Bool("disp", false)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = p.Int("bad", 0)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))
	_, err = p.Int("frac", 0)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))
	_, err = p.Bool("bad", false)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))

	_, err = parseCommon(Parameters{"maxiter": 0}, 10)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))
}
