// Package objective turns a raw bit-assignment objective into a function of
// variational parameters by running the variational circuit on a backend.
package objective

import (
	"context"

	"go.uber.org/zap"

	"github.com/copyleftdev/vqo/internal/backend"
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/optimization"
	"github.com/copyleftdev/vqo/internal/varform"
)

const component = "objective"

// ProbabilityThreshold is the probability below which exact outcomes are
// ignored.
const ProbabilityThreshold = 1e-5

// Func is a raw objective over a 0/1 assignment with one entry per qubit. It
// must be deterministic and free of side effects.
type Func func(bits []int) float64

// Evaluator is what the orchestrator needs from a wrapped objective.
type Evaluator interface {
	// NumParameters is the length of the vectors the optimizer searches.
	NumParameters() int
	// VariableBounds returns one (lower, upper) pair per parameter.
	VariableBounds() [][2]float64
	// Objective returns the function handed to the optimizer.
	Objective(ctx context.Context) optimization.ObjectiveFunction
	// Circuit builds the circuit run for an optimizer parameter vector.
	Circuit(parameters []float64) (*varform.Circuit, error)
	// Evaluations counts completed objective evaluations.
	Evaluations() int
}

// Expectation reduces a distribution to the weighted mean of f. Exact
// outcomes at or below ProbabilityThreshold are skipped.
func Expectation(dist backend.Distribution, f Func) float64 {
	exact := dist.Exact()
	var sum float64
	for _, o := range dist.Outcomes() {
		if exact && o.Weight <= ProbabilityThreshold {
			continue
		}
		sum += o.Weight * f(o.Bits)
	}
	return sum
}

// Option configures a wrapper.
type Option func(*Wrapper)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wrapper) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Wrapper evaluates a raw objective as the expectation over the outcomes of
// the variational circuit.
type Wrapper struct {
	obj     Func
	form    varform.VariationalForm
	backend backend.Backend
	params  backend.ExecuteParameters
	logger  *zap.Logger

	evals int
}

// NewWrapper wraps obj around a variational form and backend.
func NewWrapper(obj Func, form varform.VariationalForm, be backend.Backend, params backend.ExecuteParameters, opts ...Option) (*Wrapper, error) {
	if obj == nil || form == nil || be == nil {
		return nil, vqoerrors.New(vqoerrors.KindContract, "objective, variational form and backend are required").
			WithOperation("NewWrapper").WithComponent(component)
	}
	w := &Wrapper{
		obj:     obj,
		form:    form,
		backend: be,
		params:  params,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("objective")
	return w, nil
}

// NumParameters returns the parameter count of the variational form.
func (w *Wrapper) NumParameters() int { return w.form.NumParameters() }

// VariableBounds returns the parameter bounds of the variational form.
func (w *Wrapper) VariableBounds() [][2]float64 { return w.form.ParameterBounds() }

// Evaluations returns the number of completed evaluations.
func (w *Wrapper) Evaluations() int { return w.evals }

// Circuit builds the variational circuit for parameters.
func (w *Wrapper) Circuit(parameters []float64) (*varform.Circuit, error) {
	return w.form.ConstructCircuit(parameters)
}

// Objective returns the function minimized by the optimizer. Circuit
// construction and backend failures are returned as errors.
func (w *Wrapper) Objective(ctx context.Context) optimization.ObjectiveFunction {
	return func(parameters []float64) (float64, error) {
		return w.evaluate(ctx, parameters, parameters)
	}
}

// evaluate runs circuitParams and reports the value against the optimizer
// vector params.
func (w *Wrapper) evaluate(ctx context.Context, params, circuitParams []float64) (float64, error) {
	circuit, err := w.form.ConstructCircuit(circuitParams)
	if err != nil {
		return 0, err
	}
	dist, err := w.backend.Run(ctx, circuit, w.params)
	if err != nil {
		return 0, vqoerrors.Wrapf(err, vqoerrors.KindBackend, "backend %s failed", w.backend.Name())
	}

	value := Expectation(dist, w.obj)
	w.evals++
	w.logger.Debug("Evaluated objective",
		zap.Int("evaluation", w.evals),
		zap.Float64("value", value),
		zap.Int("num_parameters", len(params)),
	)
	return value, nil
}
