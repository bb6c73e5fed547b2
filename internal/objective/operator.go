package objective

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// CostTolerance is the largest difference CheckCostOperator accepts between
// the operator energy plus offset and the raw objective.
const CostTolerance = 1e-9

// maxCheckQubits bounds the exhaustive consistency check.
const maxCheckQubits = 24

// DiagonalOperator is a cost Hamiltonian that is diagonal in the
// computational basis, written in Ising form over spins z_k = 1 - 2x_k:
//
//	E(z) = Constant + Σ_k Fields[k]·z_k + Σ_{i<j} Couplings[i][j]·z_i·z_j
//
// The diagonal of Couplings is ignored.
type DiagonalOperator struct {
	NumQubits int
	Constant  float64
	Fields    []float64
	Couplings *mat.SymDense
}

// Value returns the energy of the basis state selected by bits.
func (op *DiagonalOperator) Value(bits []int) float64 {
	z := make([]float64, len(bits))
	for k, b := range bits {
		z[k] = 1 - 2*float64(b)
	}

	e := op.Constant
	if op.Fields != nil {
		e += floats.Dot(op.Fields, z)
	}
	if op.Couplings != nil {
		v := mat.NewVecDense(len(z), z)
		e += (mat.Inner(v, op.Couplings, v) - mat.Trace(op.Couplings)) / 2
	}
	return e
}

func (op *DiagonalOperator) validate() error {
	if op.NumQubits < 1 {
		return vqoerrors.Errorf(vqoerrors.KindContract, "operator must act on at least one qubit, got %d", op.NumQubits)
	}
	if op.Fields != nil && len(op.Fields) != op.NumQubits {
		return vqoerrors.Errorf(vqoerrors.KindContract, "operator has %d fields for %d qubits", len(op.Fields), op.NumQubits)
	}
	if op.Couplings != nil && op.Couplings.SymmetricDim() != op.NumQubits {
		return vqoerrors.Errorf(vqoerrors.KindContract, "operator couplings are %dx%d for %d qubits",
			op.Couplings.SymmetricDim(), op.Couplings.SymmetricDim(), op.NumQubits)
	}
	return nil
}

// CheckCostOperator verifies that op.Value(x) + offset equals f(x) for every
// one of the 2^n assignments of n bits. It is exponential in n.
func CheckCostOperator(op *DiagonalOperator, f Func, offset float64, n int) error {
	const opName = "CheckCostOperator"

	if op == nil || f == nil {
		return vqoerrors.New(vqoerrors.KindContract, "cost operator and objective are required").
			WithOperation(opName).WithComponent(component)
	}
	if err := op.validate(); err != nil {
		return vqoerrors.Wrap(err, vqoerrors.KindContract, "invalid cost operator")
	}
	if op.NumQubits != n {
		return vqoerrors.Errorf(vqoerrors.KindContract, "cost operator acts on %d qubits, objective on %d", op.NumQubits, n).
			WithOperation(opName).WithComponent(component)
	}
	if n > maxCheckQubits {
		return vqoerrors.Errorf(vqoerrors.KindContract, "cannot check cost operator on %d qubits, limit is %d", n, maxCheckQubits).
			WithOperation(opName).WithComponent(component)
	}

	bits := make([]int, n)
	for i := 0; i < 1<<n; i++ {
		for k := range bits {
			bits[k] = (i >> k) & 1
		}
		energy := op.Value(bits) + offset
		want := f(bits)
		if math.Abs(energy-want) > CostTolerance {
			return vqoerrors.Errorf(vqoerrors.KindDataConsistency,
				"cost operator disagrees with objective at %v: operator %g, objective %g", bits, energy, want).
				WithOperation(opName).WithComponent(component)
		}
	}
	return nil
}
