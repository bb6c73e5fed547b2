package backend

import (
	"context"
	"math"
	"math/cmplx"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/varform"
)

// MaxQubits bounds the register width of the in-process simulators.
const MaxQubits = 24

// gate is a 2x2 unitary in row-major order.
type gate [4]complex128

func u3(theta, phi, lambda float64) gate {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return gate{
		c, -cmplx.Exp(complex(0, lambda)) * s,
		cmplx.Exp(complex(0, phi)) * s, cmplx.Exp(complex(0, phi+lambda)) * c,
	}
}

var (
	hadamard = gate{
		complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
		complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
	}
	pauliX = gate{0, 1, 1, 0}
)

// Statevector evolves |0...0> through circuit and returns the amplitudes.
// Index i of the result has qubit k in bit k of i.
func Statevector(ctx context.Context, circuit *varform.Circuit) ([]complex128, error) {
	const op = "Statevector"

	if circuit == nil {
		return nil, vqoerrors.New(vqoerrors.KindContract, "circuit must not be nil").
			WithOperation(op).WithComponent(component)
	}
	n := circuit.NumQubits
	if n < 1 || n > MaxQubits {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "simulator supports 1 to %d qubits, got %d", MaxQubits, n).
			WithOperation(op).WithComponent(component)
	}

	psi := make([]complex128, 1<<n)
	psi[0] = 1

	for _, o := range circuit.Ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, q := range o.Qubits {
			if q < 0 || q >= n {
				return nil, vqoerrors.Errorf(vqoerrors.KindContract, "%s acts on qubit %d outside register of %d", o.Name, q, n).
					WithOperation(op).WithComponent(component)
			}
		}

		switch o.Name {
		case varform.GateBarrier:
		case varform.GateU1:
			if err := arity(o, 1, 1); err != nil {
				return nil, err
			}
			applyPhase(psi, o.Qubits[0], cmplx.Exp(complex(0, o.Params[0])))
		case varform.GateU2:
			if err := arity(o, 1, 2); err != nil {
				return nil, err
			}
			apply1q(psi, o.Qubits[0], u3(math.Pi/2, o.Params[0], o.Params[1]))
		case varform.GateU3:
			if err := arity(o, 1, 3); err != nil {
				return nil, err
			}
			apply1q(psi, o.Qubits[0], u3(o.Params[0], o.Params[1], o.Params[2]))
		case varform.GateH:
			if err := arity(o, 1, 0); err != nil {
				return nil, err
			}
			apply1q(psi, o.Qubits[0], hadamard)
		case varform.GateX:
			if err := arity(o, 1, 0); err != nil {
				return nil, err
			}
			apply1q(psi, o.Qubits[0], pauliX)
		case varform.GateCX:
			if err := arity(o, 2, 0); err != nil {
				return nil, err
			}
			if o.Qubits[0] == o.Qubits[1] {
				return nil, vqoerrors.Errorf(vqoerrors.KindContract, "cx control and target are both qubit %d", o.Qubits[0]).
					WithOperation(op).WithComponent(component)
			}
			applyCX(psi, o.Qubits[0], o.Qubits[1])
		default:
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "unsupported gate %q", o.Name).
				WithOperation(op).WithComponent(component)
		}
	}
	return psi, nil
}

func arity(o varform.Op, qubits, params int) error {
	if len(o.Qubits) != qubits || len(o.Params) != params {
		return vqoerrors.Errorf(vqoerrors.KindContract, "%s expects %d qubits and %d parameters, got %d and %d",
			o.Name, qubits, params, len(o.Qubits), len(o.Params)).WithComponent(component)
	}
	return nil
}

func apply1q(psi []complex128, q int, g gate) {
	mask := 1 << q
	for i := range psi {
		if i&mask != 0 {
			continue
		}
		j := i | mask
		a0, a1 := psi[i], psi[j]
		psi[i] = g[0]*a0 + g[1]*a1
		psi[j] = g[2]*a0 + g[3]*a1
	}
}

func applyPhase(psi []complex128, q int, phase complex128) {
	mask := 1 << q
	for i := range psi {
		if i&mask != 0 {
			psi[i] *= phase
		}
	}
}

func applyCX(psi []complex128, control, target int) {
	cm, tm := 1<<control, 1<<target
	for i := range psi {
		if i&cm != 0 && i&tm == 0 {
			j := i | tm
			psi[i], psi[j] = psi[j], psi[i]
		}
	}
}
