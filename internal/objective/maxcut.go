package objective

import (
	"gonum.org/v1/gonum/mat"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// WeightsFromRows builds an adjacency matrix from its rows, as decoded from
// a JSON matrix. The rows must form a non-empty square matrix.
func WeightsFromRows(rows [][]float64) (*mat.Dense, error) {
	const op = "WeightsFromRows"

	n := len(rows)
	if n == 0 {
		return nil, vqoerrors.New(vqoerrors.KindContract, "weights must not be empty").
			WithOperation(op).WithComponent(component)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract,
				"weights must be square, row %d has %d entries for %d nodes", i, len(row), n).
				WithOperation(op).WithComponent(component)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}

// MaxCut returns the negated cut weight of a bit assignment over the weighted
// graph with adjacency matrix weights:
//
//	f(x) = -Σ_{i,j} w_ij · x_i · (1 - x_j)
//
// weights must be square and bits must have one entry per row.
func MaxCut(weights *mat.Dense) Func {
	w := mat.DenseCopyOf(weights)
	n, _ := w.Dims()
	return func(bits []int) float64 {
		var cut float64
		for i := 0; i < n; i++ {
			if bits[i] == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				if bits[j] == 0 {
					cut += w.At(i, j)
				}
			}
		}
		return -cut
	}
}

// MaxCutOperator returns the diagonal operator and offset matching MaxCut on
// the same weights, so that op.Value(x) + offset == MaxCut(weights)(x).
//
// Substituting x = (1 - z)/2 gives, for each off-diagonal w_ij,
// -w_ij·(1 + z_j - z_i - z_i·z_j)/4.
func MaxCutOperator(weights *mat.Dense) (*DiagonalOperator, float64, error) {
	r, c := weights.Dims()
	if r != c {
		return nil, 0, vqoerrors.Errorf(vqoerrors.KindContract, "weights must be square, got %dx%d", r, c).
			WithOperation("MaxCutOperator").WithComponent(component)
	}
	n := r

	fields := make([]float64, n)
	couplings := mat.NewSymDense(n, nil)
	var offset float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			w := weights.At(i, j)
			if w == 0 {
				continue
			}
			offset -= w / 4
			fields[j] -= w / 4
			fields[i] += w / 4
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			couplings.SetSym(a, b, couplings.At(a, b)+w/4)
		}
	}

	return &DiagonalOperator{
		NumQubits: n,
		Fields:    fields,
		Couplings: couplings,
	}, offset, nil
}
