package varform

import (
	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// InitialState seeds a circuit before the variational layers are applied.
type InitialState interface {
	// Circuit returns the preparation circuit on numQubits qubits.
	Circuit(numQubits int) (*Circuit, error)
}

// ZeroState prepares |0...0>, which is also the default.
type ZeroState struct{}

// Circuit implements InitialState.
func (ZeroState) Circuit(numQubits int) (*Circuit, error) {
	return NewCircuit(numQubits), nil
}

// BitstringState prepares a computational basis state: qubit k is flipped
// when Bits[k] is 1.
type BitstringState struct {
	Bits []int
}

// Circuit implements InitialState.
func (s BitstringState) Circuit(numQubits int) (*Circuit, error) {
	if len(s.Bits) != numQubits {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract,
			"initial bitstring has %d bits, register has %d qubits", len(s.Bits), numQubits).
			WithOperation("BitstringState.Circuit").WithComponent(component)
	}
	c := NewCircuit(numQubits)
	for q, b := range s.Bits {
		switch b {
		case 0:
		case 1:
			c.X(q)
		default:
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "bit %d of initial state is %d, want 0 or 1", q, b).
				WithOperation("BitstringState.Circuit").WithComponent(component)
		}
	}
	return c, nil
}
