// Package varform builds parameterized circuits ("variational forms") whose
// continuous parameters are searched by the classical optimizer.
package varform

import (
	"math"
	"strings"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

const component = "varform"

// VariationalForm produces a circuit for every parameter vector of length
// NumParameters.
type VariationalForm interface {
	// ConstructCircuit builds the circuit for the given parameters.
	ConstructCircuit(parameters []float64) (*Circuit, error)

	// NumParameters returns the required parameter vector length.
	NumParameters() int

	// ParameterBounds returns one [lower, upper] pair per parameter.
	ParameterBounds() [][2]float64

	// NumQubits returns the register width.
	NumQubits() int

	// Depth returns the number of entangling layers.
	Depth() int
}

// Description selects and configures a variational form by name.
type Description struct {
	Name         string       `json:"name"`
	NumQubits    int          `json:"num_qubits"`
	Depth        int          `json:"depth"`
	Entanglement string       `json:"entanglement,omitempty"`
	EntanglerMap EntanglerMap `json:"entangler_map,omitempty"`
}

// New builds the variational form named in desc. Only RYRZ is available.
func New(desc Description, initial InitialState) (VariationalForm, error) {
	switch strings.ToUpper(desc.Name) {
	case "RYRZ", "":
		return NewRYRZ(Config{
			NumQubits:    desc.NumQubits,
			Depth:        desc.Depth,
			EntanglerMap: desc.EntanglerMap,
			Entanglement: desc.Entanglement,
			InitialState: initial,
		})
	default:
		return nil, vqoerrors.Errorf(vqoerrors.KindConfiguration, "unknown variational form %q", desc.Name).
			WithOperation("New").WithComponent(component)
	}
}

// Config holds the construction arguments of an RYRZ form.
type Config struct {
	NumQubits int
	Depth     int
	// EntanglerMap, when non-nil, is validated and used instead of the
	// Entanglement style.
	EntanglerMap EntanglerMap
	// Entanglement is "linear" (default) or "full".
	Entanglement string
	InitialState InitialState
}

// RYRZ is the layered Y+Z rotation form with H-CX-H entanglers.
//
// Each layer applies U3(θ,0,0) followed by U1(φ) to every qubit. Between
// layers every edge of the entangler map applies H on the target, a CX and
// H on the target again. The form is immutable after construction.
type RYRZ struct {
	numQubits     int
	depth         int
	numParameters int
	bounds        [][2]float64
	entanglerMap  EntanglerMap
	initialState  InitialState
}

// NewRYRZ configures an RYRZ variational form.
func NewRYRZ(cfg Config) (*RYRZ, error) {
	const op = "NewRYRZ"

	if cfg.NumQubits < 1 {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "number of qubits must be positive, got %d", cfg.NumQubits).
			WithOperation(op).WithComponent(component)
	}
	if cfg.Depth < 1 {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "depth must be positive, got %d", cfg.Depth).
			WithOperation(op).WithComponent(component)
	}

	var (
		m   EntanglerMap
		err error
	)
	if cfg.EntanglerMap != nil {
		m, err = ValidateEntanglerMap(cfg.EntanglerMap, cfg.NumQubits)
	} else {
		m, err = EntanglerMapFor(cfg.Entanglement, cfg.NumQubits)
	}
	if err != nil {
		return nil, err
	}

	n := cfg.NumQubits * (cfg.Depth + 1) * 2
	bounds := make([][2]float64, n)
	for i := range bounds {
		bounds[i] = [2]float64{-math.Pi, math.Pi}
	}

	return &RYRZ{
		numQubits:     cfg.NumQubits,
		depth:         cfg.Depth,
		numParameters: n,
		bounds:        bounds,
		entanglerMap:  m,
		initialState:  cfg.InitialState,
	}, nil
}

// NumParameters returns NumQubits * (Depth + 1) * 2.
func (f *RYRZ) NumParameters() int { return f.numParameters }

// NumQubits returns the register width.
func (f *RYRZ) NumQubits() int { return f.numQubits }

// Depth returns the number of entangling layers.
func (f *RYRZ) Depth() int { return f.depth }

// ParameterBounds returns (-π, π) for every parameter.
func (f *RYRZ) ParameterBounds() [][2]float64 {
	return append([][2]float64(nil), f.bounds...)
}

// EntanglerMap returns a copy of the entangler map in use.
func (f *RYRZ) EntanglerMap() EntanglerMap {
	return f.entanglerMap.Clone()
}

// ConstructCircuit builds the circuit for parameters. It fails with a
// contract violation when len(parameters) != NumParameters.
func (f *RYRZ) ConstructCircuit(parameters []float64) (*Circuit, error) {
	const op = "ConstructCircuit"

	if len(parameters) != f.numParameters {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "the number of parameters has to be %d, got %d",
			f.numParameters, len(parameters)).WithOperation(op).WithComponent(component)
	}

	circuit := NewCircuit(f.numQubits)
	if f.initialState != nil {
		prep, err := f.initialState.Circuit(f.numQubits)
		if err != nil {
			return nil, err
		}
		if prep.NumQubits != f.numQubits {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "initial state has %d qubits, form has %d",
				prep.NumQubits, f.numQubits).WithOperation(op).WithComponent(component)
		}
		circuit.Ops = append(circuit.Ops, prep.Ops...)
	}

	idx := f.rotationLayer(circuit, parameters, 0)
	pairs := f.entanglerMap.Pairs()
	for layer := 0; layer < f.depth; layer++ {
		circuit.Barrier()
		for _, p := range pairs {
			circuit.U2(0, math.Pi, p.Target)
			circuit.CX(p.Source, p.Target)
			circuit.U2(0, math.Pi, p.Target)
		}
		idx = f.rotationLayer(circuit, parameters, idx)
	}
	circuit.Barrier()

	return circuit, nil
}

// rotationLayer applies U3(θ,0,0) U1(φ) to every qubit and returns the next
// parameter index.
func (f *RYRZ) rotationLayer(c *Circuit, parameters []float64, idx int) int {
	for q := 0; q < f.numQubits; q++ {
		c.U3(parameters[idx], 0, 0, q)
		c.U1(parameters[idx+1], q)
		idx += 2
	}
	return idx
}
