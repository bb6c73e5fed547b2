package optimization

import (
	"math"

	"go.uber.org/zap"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// tracker sits between an optimizer and the objective. It clamps points into
// bounds, counts evaluations, keeps the history and the first best point,
// and latches the first objective error.
type tracker struct {
	objective ObjectiveFunction
	bounds    [][2]float64
	logger    *zap.Logger
	disp      bool

	evals   int
	best    *Solution
	history []Evaluation
	err     error
}

func newTracker(objective ObjectiveFunction, bounds [][2]float64, logger *zap.Logger, disp bool) *tracker {
	return &tracker{
		objective: objective,
		bounds:    bounds,
		logger:    logger,
		disp:      disp,
	}
}

// eval evaluates the objective at x clamped into bounds. After the first
// error every later call returns the same error without evaluating.
func (t *tracker) eval(x []float64) (float64, error) {
	if t.err != nil {
		return math.Inf(1), t.err
	}
	if len(x) != len(t.bounds) {
		t.err = vqoerrors.Errorf(vqoerrors.KindContract, "optimizer produced a point of length %d, want %d", len(x), len(t.bounds)).
			WithComponent(component)
		return math.Inf(1), t.err
	}

	p := make([]float64, len(x))
	for i := range x {
		p[i] = clamp(x[i], t.bounds[i])
	}

	value, err := t.objective(p)
	if err != nil {
		t.err = vqoerrors.Wrapf(err, vqoerrors.KindEvaluation, "objective evaluation %d failed", t.evals+1)
		return math.Inf(1), t.err
	}
	t.evals++

	if t.best == nil || value < t.best.Value {
		t.best = &Solution{Parameters: p, Value: value}
	}
	t.history = append(t.history, Evaluation{
		Iteration: t.evals,
		Solution:  &Solution{Parameters: p, Value: value},
	})

	if t.disp {
		t.logger.Debug("Objective evaluated",
			zap.Int("evaluation", t.evals),
			zap.Float64("value", value),
			zap.Float64("best", t.best.Value),
		)
	}
	return value, nil
}

// value adapts eval to the func(x) float64 shape used by gonum and mayfly.
func (t *tracker) value(x []float64) float64 {
	v, err := t.eval(x)
	if err != nil {
		return math.Inf(1)
	}
	return v
}

func (t *tracker) result() (*OptimizationResult, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.best == nil {
		return nil, vqoerrors.New(vqoerrors.KindEvaluation, "optimizer finished without evaluating the objective").
			WithComponent(component)
	}
	return &OptimizationResult{
		BestSolution: &Solution{
			Parameters: append([]float64(nil), t.best.Parameters...),
			Value:      t.best.Value,
		},
		History:     t.history,
		Evaluations: t.evals,
	}, nil
}
