package acquisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedImprovement(t *testing.T) {
	tests := []struct {
		name          string
		bestObserved  float64
		xi            float64
		mu            float64
		sigma         float64
		expectedValue float64
	}{
		{"no improvement", 1.0, 0.01, 1.5, 0.1, 0.0},
		// 1.0 - 0.5 - 0.01 = 0.49 plus the density contribution
		{"definite improvement", 1.0, 0.01, 0.5, 0.2, 0.4905},
		{"zero sigma", 1.0, 0.0, 0.5, 0.0, 0.5},
		{"negative energies", -3.0, 0.0, -3.5, 0.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovement(tt.bestObserved, tt.xi)
			assert.InDelta(t, tt.expectedValue, ei.Compute(tt.mu, tt.sigma), 1e-4)
		})
	}
}

func TestExpectedImprovementMaximize(t *testing.T) {
	ei := NewExpectedImprovementMax(1.0, 0.0)
	assert.Equal(t, 0.0, ei.Compute(0.5, 0))
	assert.InDelta(t, 0.5, ei.Compute(1.5, 0), 1e-12)
}

func TestExpectedImprovementUpdate(t *testing.T) {
	ei := NewExpectedImprovement(1.0, 0.01)
	assert.Equal(t, 1.0, ei.BestObserved())

	ei.UpdateBest(0.5)
	assert.Equal(t, 0.5, ei.BestObserved())

	ei.SetXi(0.01)
	assert.Greater(t, ei.Compute(0.4, 0.1), 0.0, "expected positive EI after update")
	assert.Greater(t, ei.Compute(0.8, 0.5), 0.0, "uncertain predictions above the best keep some EI")
}

func TestExpectedImprovementGradient(t *testing.T) {
	tests := []struct {
		name     string
		minimize bool
		mu       float64
	}{
		{"maximize", false, 1.5},
		{"minimize", true, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovementMax(1.0, 0.01)
			if tt.minimize {
				ei = NewExpectedImprovement(1.0, 0.01)
			}
			const (
				sigma, dmu, dsigma = 0.5, 1.0, 1.0
				h                  = 1e-6
			)

			grad := ei.Gradient(tt.mu, dmu, sigma, dsigma)
			f := func(eps float64) float64 {
				return ei.Compute(tt.mu+eps*dmu, sigma+eps*dsigma)
			}
			numericalGrad := (f(h) - f(-h)) / (2 * h)
			assert.InDelta(t, numericalGrad, grad, 1e-6)
		})
	}
}
