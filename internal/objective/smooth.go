package objective

import (
	"context"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/copyleftdev/vqo/internal/backend"
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/optimization"
	"github.com/copyleftdev/vqo/internal/varform"
)

// SmoothWrapper searches a smooth schedule instead of every layer angle.
//
// Each rotation slot (qubit, angle) gets Knots control values spread evenly
// over the layers 0..Depth. The per-layer angles are interpolated from the
// knots, piecewise linearly for two knots and with an Akima spline for more,
// then clamped into [-π, π]. Optimizer vectors are knot-major: knot k of slot
// s is at index k*slots+s, mirroring the layer-major circuit layout.
type SmoothWrapper struct {
	*Wrapper
	knots  int
	slots  int
	layers int
	bounds [][2]float64
}

// NewSmoothWrapper wraps obj with a knots-per-slot smooth schedule. knots
// must be between 2 and Depth+1.
func NewSmoothWrapper(obj Func, form varform.VariationalForm, be backend.Backend, params backend.ExecuteParameters, knots int, opts ...Option) (*SmoothWrapper, error) {
	w, err := NewWrapper(obj, form, be, params, opts...)
	if err != nil {
		return nil, err
	}

	layers := form.Depth() + 1
	if knots < 2 || knots > layers {
		return nil, vqoerrors.Errorf(vqoerrors.KindConfiguration, "smooth schedule needs between 2 and %d knots, got %d", layers, knots).
			WithOperation("NewSmoothWrapper").WithComponent(component)
	}

	slots := form.NumParameters() / layers
	bounds := make([][2]float64, knots*slots)
	for i := range bounds {
		bounds[i] = [2]float64{-math.Pi, math.Pi}
	}

	return &SmoothWrapper{
		Wrapper: w,
		knots:   knots,
		slots:   slots,
		layers:  layers,
		bounds:  bounds,
	}, nil
}

// Knots returns the number of control values per slot.
func (s *SmoothWrapper) Knots() int { return s.knots }

// NumParameters returns Knots times the number of rotation slots.
func (s *SmoothWrapper) NumParameters() int { return len(s.bounds) }

// VariableBounds returns [-π, π] for every knot.
func (s *SmoothWrapper) VariableBounds() [][2]float64 {
	return append([][2]float64(nil), s.bounds...)
}

// Expand interpolates knot values into a full parameter vector for the
// variational form.
func (s *SmoothWrapper) Expand(parameters []float64) ([]float64, error) {
	if len(parameters) != len(s.bounds) {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "expected %d smooth parameters, got %d", len(s.bounds), len(parameters)).
			WithOperation("Expand").WithComponent(component)
	}

	xs := make([]float64, s.knots)
	for k := range xs {
		xs[k] = float64(k) * float64(s.layers-1) / float64(s.knots-1)
	}

	out := make([]float64, s.layers*s.slots)
	ys := make([]float64, s.knots)
	for slot := 0; slot < s.slots; slot++ {
		for k := range ys {
			ys[k] = parameters[k*s.slots+slot]
		}
		predictor, err := fit(xs, ys)
		if err != nil {
			return nil, vqoerrors.Wrap(err, vqoerrors.KindContract, "smooth schedule fit failed")
		}
		for l := 0; l < s.layers; l++ {
			v := predictor.Predict(float64(l))
			out[l*s.slots+slot] = math.Max(-math.Pi, math.Min(math.Pi, v))
		}
	}
	return out, nil
}

func fit(xs, ys []float64) (interp.Predictor, error) {
	if len(xs) == 2 {
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			return nil, err
		}
		return pl, nil
	}
	var as interp.AkimaSpline
	if err := as.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &as, nil
}

// Circuit builds the variational circuit for expanded knot values.
func (s *SmoothWrapper) Circuit(parameters []float64) (*varform.Circuit, error) {
	full, err := s.Expand(parameters)
	if err != nil {
		return nil, err
	}
	return s.form.ConstructCircuit(full)
}

// Objective returns the function minimized by the optimizer over knot values.
func (s *SmoothWrapper) Objective(ctx context.Context) optimization.ObjectiveFunction {
	return func(parameters []float64) (float64, error) {
		full, err := s.Expand(parameters)
		if err != nil {
			return 0, err
		}
		return s.evaluate(ctx, parameters, full)
	}
}
