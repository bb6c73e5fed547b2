// Package acquisition scores surrogate predictions when choosing the next
// parameter vector to evaluate.
package acquisition

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// minSigma is the predictive deviation below which the surrogate is treated
// as certain.
const minSigma = 1e-10

// ExpectedImprovement implements the Expected Improvement acquisition function
type ExpectedImprovement struct {
	// Best observed value so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi float64
	// Whether we're minimizing (true) or maximizing (false)
	minimize bool
}

// NewExpectedImprovement creates an acquisition function for minimization.
func NewExpectedImprovement(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
		minimize:     true,
	}
}

// NewExpectedImprovementMax creates an acquisition function for
// maximization.
func NewExpectedImprovementMax(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{bestObserved: bestObserved, xi: xi}
}

func (ei *ExpectedImprovement) improvement(mu float64) float64 {
	if ei.minimize {
		return ei.bestObserved - mu - ei.xi
	}
	return mu - ei.bestObserved - ei.xi
}

// Compute returns the expected improvement over the best observed value of
// a prediction with mean mu and standard deviation sigma. It is never
// negative.
//
//	EI = improvement·Φ(z) + σ·φ(z),  z = improvement/σ
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.improvement(mu)
	if sigma <= minSigma {
		return max(improvement, 0)
	}

	z := improvement / sigma
	return max(improvement*distuv.UnitNormal.CDF(z)+sigma*distuv.UnitNormal.Prob(z), 0)
}

// Gradient computes the derivative of the Expected Improvement along a
// direction in which mu changes by dmu and sigma by dsigma.
func (ei *ExpectedImprovement) Gradient(mu, dmu float64, sigma, dsigma float64) float64 {
	if sigma <= minSigma {
		if ei.minimize {
			return -dmu
		}
		return dmu
	}

	z := ei.improvement(mu) / sigma
	pdf := distuv.UnitNormal.Prob(z)
	cdf := distuv.UnitNormal.CDF(z)

	// dEI/dmu is ∓Φ(z) and dEI/dsigma is φ(z).
	if ei.minimize {
		return -cdf*dmu + pdf*dsigma
	}
	return cdf*dmu + pdf*dsigma
}

// UpdateBest updates the best observed value
func (ei *ExpectedImprovement) UpdateBest(best float64) {
	ei.bestObserved = best
}

// SetXi sets the exploration-exploitation trade-off parameter
func (ei *ExpectedImprovement) SetXi(xi float64) {
	ei.xi = xi
}

// BestObserved returns the best observed value
func (ei *ExpectedImprovement) BestObserved() float64 {
	return ei.bestObserved
}
