// Package kernels provides covariance functions for Gaussian process
// surrogates over variational parameter vectors.
package kernels

import (
	"fmt"
	"math"
	"strings"
)

// Kernel represents a kernel function for Gaussian Processes
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns the current hyperparameters
	Hyperparameters() []float64

	// SetHyperparameters sets the kernel's hyperparameters
	SetHyperparameters(params []float64) error
}

// Kernel names accepted by New.
const (
	NameRBF      = "rbf"
	NameMatern52 = "matern52"
	NamePeriodic = "periodic"
)

// New builds the kernel called name with unit signal variance. period is
// only used by the periodic kernel.
func New(name string, lengthScale, period float64) (Kernel, error) {
	switch strings.ToLower(name) {
	case NameRBF:
		return NewRBFKernel(lengthScale, 1)
	case NameMatern52, "":
		return NewMatern52Kernel(lengthScale, 1)
	case NamePeriodic:
		return NewPeriodicKernel(lengthScale, period, 1)
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

// scale holds the two hyperparameters shared by the stationary kernels.
type scale struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

func newScale(lengthScale, signalVar float64) (scale, error) {
	if err := checkPositive(lengthScale, signalVar); err != nil {
		return scale{}, err
	}
	return scale{lengthScale: lengthScale, signalVar: signalVar}, nil
}

// Hyperparameters returns [lengthScale, signalVar].
func (s *scale) Hyperparameters() []float64 {
	return []float64{s.lengthScale, s.signalVar}
}

// SetHyperparameters sets [lengthScale, signalVar].
func (s *scale) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if err := checkPositive(params...); err != nil {
		return err
	}
	s.lengthScale = params[0]
	s.signalVar = params[1]
	return nil
}

func checkPositive(params ...float64) error {
	for _, p := range params {
		if !(p > 0) {
			return fmt.Errorf("hyperparameters must be positive, got %v", params)
		}
	}
	return nil
}

func squaredDistance(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	return sumSq
}

// RBFKernel implements the Radial Basis Function (squared exponential) kernel
type RBFKernel struct {
	scale
}

// NewRBFKernel creates a new RBF kernel with the given parameters
func NewRBFKernel(lengthScale, signalVar float64) (*RBFKernel, error) {
	s, err := newScale(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &RBFKernel{scale: s}, nil
}

// Eval computes the RBF kernel value between x1 and x2
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r2 := squaredDistance(x1, x2) / (2.0 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Matern52Kernel implements the Matérn 5/2 kernel
type Matern52Kernel struct {
	scale
}

// NewMatern52Kernel creates a new Matérn 5/2 kernel with the given parameters
func NewMatern52Kernel(lengthScale, signalVar float64) (*Matern52Kernel, error) {
	s, err := newScale(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &Matern52Kernel{scale: s}, nil
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(squaredDistance(x1, x2)) / k.lengthScale
	polyTerm := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	expTerm := math.Exp(-math.Sqrt(5) * r)
	return k.signalVar * polyTerm * expTerm
}

// PeriodicKernel is the exp-sine-squared kernel applied per coordinate,
// suited to rotation angles where x and x+period are the same point.
type PeriodicKernel struct {
	scale
	period float64
}

// NewPeriodicKernel creates a periodic kernel. Rotation angles use period 2π.
func NewPeriodicKernel(lengthScale, period, signalVar float64) (*PeriodicKernel, error) {
	s, err := newScale(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	if !(period > 0) {
		return nil, fmt.Errorf("period must be positive, got %v", period)
	}
	return &PeriodicKernel{scale: s, period: period}, nil
}

// Eval computes σ²·exp(-2·Σ sin²(π|x1-x2|/p) / ℓ²).
func (k *PeriodicKernel) Eval(x1, x2 []float64) float64 {
	sum := 0.0
	for i := range x1 {
		s := math.Sin(math.Pi * math.Abs(x1[i]-x2[i]) / k.period)
		sum += s * s
	}
	return k.signalVar * math.Exp(-2*sum/(k.lengthScale*k.lengthScale))
}

// Period returns the kernel period.
func (k *PeriodicKernel) Period() float64 { return k.period }
