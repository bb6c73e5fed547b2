package optimization

import (
	"context"
)

// Optimizer defines the interface for optimization algorithms.
//
// Implementations call the objective repeatedly with vectors of length
// numParameters that respect bounds, and return the best vector found, its
// value and the number of objective evaluations. Evaluations are issued one
// at a time; an objective error aborts the run.
type Optimizer interface {
	// Optimize runs the optimization process. A nil initialPoint lets the
	// optimizer pick its own starting point inside bounds.
	Optimize(ctx context.Context, numParameters int, objective ObjectiveFunction, bounds [][2]float64, initialPoint []float64) (*OptimizationResult, error)
}

// ObjectiveFunction defines the function to be minimized.
type ObjectiveFunction func([]float64) (float64, error)

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation represents a single evaluation of the objective function
type Evaluation struct {
	Iteration int
	Solution  *Solution
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Evaluations  int
}
