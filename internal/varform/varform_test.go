package varform

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

func TestRYRZNumParametersAndBounds(t *testing.T) {
	for numQubits := 1; numQubits <= 5; numQubits++ {
		for depth := 1; depth <= 4; depth++ {
			form, err := NewRYRZ(Config{NumQubits: numQubits, Depth: depth})
			require.NoError(t, err)

			want := numQubits * (depth + 1) * 2
			assert.Equal(t, want, form.NumParameters())

			bounds := form.ParameterBounds()
			require.Len(t, bounds, want)
			for _, b := range bounds {
				assert.Equal(t, [2]float64{-math.Pi, math.Pi}, b)
			}
		}
	}
}

func TestNewRYRZInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero qubits", Config{NumQubits: 0, Depth: 1}},
		{"zero depth", Config{NumQubits: 2, Depth: 0}},
		{"unknown style", Config{NumQubits: 2, Depth: 1, Entanglement: "ring"}},
		{"bad map", Config{NumQubits: 2, Depth: 1, EntanglerMap: EntanglerMap{0: {2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRYRZ(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, vqoerrors.ErrContractViolation))
		})
	}
}

func TestConstructCircuitRejectsWrongLength(t *testing.T) {
	form, err := NewRYRZ(Config{NumQubits: 3, Depth: 2})
	require.NoError(t, err)

	for _, n := range []int{0, 1, form.NumParameters() - 1, form.NumParameters() + 1} {
		_, err := form.ConstructCircuit(make([]float64, n))
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, vqoerrors.ErrContractViolation))
	}
}

func TestConstructCircuitLayout(t *testing.T) {
	form, err := NewRYRZ(Config{NumQubits: 3, Depth: 2, Entanglement: EntanglementFull})
	require.NoError(t, err)

	params := make([]float64, form.NumParameters())
	for i := range params {
		params[i] = float64(i) / 10
	}

	circuit, err := form.ConstructCircuit(params)
	require.NoError(t, err)

	// 3 full-map edges, each H-CX-H, per layer.
	assert.Equal(t, 3*(2+1), circuit.Count(GateU3))
	assert.Equal(t, 3*(2+1), circuit.Count(GateU1))
	assert.Equal(t, 2*3, circuit.Count(GateCX))
	assert.Equal(t, 2*3*2, circuit.Count(GateU2))
	assert.Equal(t, 2+1, circuit.Count(GateBarrier))

	// Parameters are consumed two per qubit, in order.
	var used []float64
	for _, op := range circuit.Ops {
		switch op.Name {
		case GateU3:
			assert.Equal(t, 0.0, op.Params[1])
			assert.Equal(t, 0.0, op.Params[2])
			used = append(used, op.Params[0])
		case GateU1:
			used = append(used, op.Params[0])
		}
	}
	assert.Equal(t, params, used)

	last := circuit.Ops[len(circuit.Ops)-1]
	assert.Equal(t, GateBarrier, last.Name)
	assert.Equal(t, []int{0, 1, 2}, last.Qubits)
}

func TestConstructCircuitDeterministic(t *testing.T) {
	form, err := NewRYRZ(Config{NumQubits: 2, Depth: 1})
	require.NoError(t, err)

	params := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	a, err := form.ConstructCircuit(params)
	require.NoError(t, err)
	b, err := form.ConstructCircuit(params)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestConstructCircuitInitialState(t *testing.T) {
	form, err := NewRYRZ(Config{NumQubits: 3, Depth: 1, InitialState: BitstringState{Bits: []int{1, 0, 1}}})
	require.NoError(t, err)

	circuit, err := form.ConstructCircuit(make([]float64, form.NumParameters()))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(circuit.Ops), 2)
	assert.Equal(t, Op{Name: GateX, Qubits: []int{0}}, circuit.Ops[0])
	assert.Equal(t, Op{Name: GateX, Qubits: []int{2}}, circuit.Ops[1])

	bad, err := NewRYRZ(Config{NumQubits: 3, Depth: 1, InitialState: BitstringState{Bits: []int{1}}})
	require.NoError(t, err)
	_, err = bad.ConstructCircuit(make([]float64, bad.NumParameters()))
	assert.True(t, errors.Is(err, vqoerrors.ErrContractViolation))
}

func TestNewByDescription(t *testing.T) {
	form, err := New(Description{Name: "RYRZ", NumQubits: 4, Depth: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, form.NumParameters())

	_, err = New(Description{Name: "UCCSD", NumQubits: 4, Depth: 3}, nil)
	assert.True(t, errors.Is(err, vqoerrors.ErrConfiguration))
}

func TestCircuitQASM(t *testing.T) {
	c := NewCircuit(2)
	c.U3(0.5, 0, 0, 0)
	c.CX(0, 1)
	c.Barrier()

	qasm := c.QASM()
	assert.True(t, strings.HasPrefix(qasm, "OPENQASM 2.0;\n"))
	assert.Contains(t, qasm, "qreg q[2];")
	assert.Contains(t, qasm, "u3(0.5,0,0) q[0];")
	assert.Contains(t, qasm, "cx q[0],q[1];")
	assert.Contains(t, qasm, "barrier q[0],q[1];")
	assert.Contains(t, qasm, "measure q[1] -> c[1];")
}
