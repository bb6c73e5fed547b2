package optimization

import (
	"math"
	"math/rand/v2"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

const component = "optimization"

// Parameters are algorithm-specific hyperparameters, typically decoded from
// JSON. Numbers may arrive as float64 or int.
type Parameters map[string]any

// Int returns the integer stored under key or def when absent.
func (p Parameters) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, invalidParameter(key, v)
		}
		return int(n), nil
	default:
		return 0, invalidParameter(key, v)
	}
}

// Float returns the number stored under key or def when absent.
func (p Parameters) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, invalidParameter(key, v)
	}
}

// Bool returns the flag stored under key or def when absent.
func (p Parameters) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidParameter(key, v)
	}
	return b, nil
}

func invalidParameter(key string, v any) error {
	return vqoerrors.Errorf(vqoerrors.KindConfiguration, "invalid value %v (%T) for optimizer parameter %q", v, v, key).
		WithComponent(component)
}

// commonSettings are the hyperparameters every optimizer understands.
type commonSettings struct {
	maxIter int
	seed    uint64
	disp    bool
}

func parseCommon(params Parameters, defaultMaxIter int) (commonSettings, error) {
	var s commonSettings
	var err error
	if s.maxIter, err = params.Int("maxiter", defaultMaxIter); err != nil {
		return s, err
	}
	if s.maxIter < 1 {
		return s, vqoerrors.Errorf(vqoerrors.KindConfiguration, "maxiter must be positive, got %d", s.maxIter).
			WithComponent(component)
	}
	seed, err := params.Int("seed", 0)
	if err != nil {
		return s, err
	}
	s.seed = uint64(seed)
	if s.disp, err = params.Bool("disp", false); err != nil {
		return s, err
	}
	return s, nil
}

// validateProblem checks the arguments common to every Optimize call.
func validateProblem(numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) error {
	const op = "Optimize"

	if numParameters < 1 {
		return vqoerrors.Errorf(vqoerrors.KindContract, "number of parameters must be positive, got %d", numParameters).
			WithOperation(op).WithComponent(component)
	}
	if objective == nil {
		return vqoerrors.New(vqoerrors.KindContract, "objective function must not be nil").
			WithOperation(op).WithComponent(component)
	}
	if len(bounds) != numParameters {
		return vqoerrors.Errorf(vqoerrors.KindContract, "got %d bounds for %d parameters", len(bounds), numParameters).
			WithOperation(op).WithComponent(component)
	}
	for i, b := range bounds {
		if !(b[0] <= b[1]) {
			return vqoerrors.Errorf(vqoerrors.KindContract, "bound %d has lower %v above upper %v", i, b[0], b[1]).
				WithOperation(op).WithComponent(component)
		}
	}
	if initialPoint != nil && len(initialPoint) != numParameters {
		return vqoerrors.Errorf(vqoerrors.KindContract, "initial point has length %d, want %d", len(initialPoint), numParameters).
			WithOperation(op).WithComponent(component)
	}
	return nil
}

// startingPoint returns a clamped copy of initialPoint, or a uniform random
// point inside bounds when initialPoint is nil.
func startingPoint(initialPoint []float64, bounds [][2]float64, rng *rand.Rand) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		if initialPoint != nil {
			x[i] = clamp(initialPoint[i], b)
			continue
		}
		x[i] = b[0] + rng.Float64()*(b[1]-b[0])
	}
	return x
}

func clamp(v float64, b [2]float64) float64 {
	return math.Max(b[0], math.Min(v, b[1]))
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5))
}
