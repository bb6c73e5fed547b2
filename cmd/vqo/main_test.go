package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleGraph = `[[0,1,1,0],[1,0,1,1],[1,1,0,1],[0,1,1,0]]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunMaxCut(t *testing.T) {
	t.Setenv("VQO_BACKEND", "statevector_simulator")

	out, err := execute(t, "run", "--weights", exampleGraph, "--maxiter", "50", "--depth", "3")
	require.NoError(t, err, out)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "SequentialOptimizer", got.Optimizer)
	assert.Equal(t, 4, got.NumQubits)
	assert.Equal(t, 49, got.Result.NumOptimizerEvals)
	assert.Equal(t, -4.0, got.Solution.Value)
	assert.Contains(t, [][]int{{1, 0, 0, 1}, {0, 1, 1, 0}}, got.Solution.Bits)
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(exampleGraph), 0o600))

	out, err := execute(t, "run", "--weights-file", path, "--optimizer", "RandomSearch",
		"--maxiter", "20", "--backend", "qasm_simulator", "--shots", "256", "--seed", "5")
	require.NoError(t, err, out)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "RandomSearch", got.Optimizer)
	assert.Equal(t, 20, got.Result.NumOptimizerEvals)
	assert.LessOrEqual(t, got.Solution.Value, 0.0)
}

func TestRunMaxIterPrecedence(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"from optimizer params", []string{"--optimizer-params", `{"maxiter": 7}`}, 7},
		{"flag wins", []string{"--optimizer-params", `{"maxiter": 7}`, "--maxiter", "9"}, 9},
		{"config default", nil, 50},
		{"null params", []string{"--optimizer-params", "null"}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VQO_MAXITER", "50")
			args := append([]string{"run", "--weights", exampleGraph, "--optimizer", "RandomSearch"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err, out)

			var got runOutput
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got.Result.NumOptimizerEvals)
		})
	}
}

func TestRunEntanglerMap(t *testing.T) {
	out, err := execute(t, "run", "--weights", exampleGraph, "--optimizer", "RandomSearch", "--maxiter", "5",
		"--depth", "1", "--entangler-map", `{"0":[1,2,3]}`)
	require.NoError(t, err, out)

	var got runOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Result.NumOptimizerEvals)
	assert.Equal(t, 4, got.NumQubits)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no weights", []string{"run"}, "at least one of the flags"},
		{"both weights", []string{"run", "--weights", exampleGraph, "--weights-file", "x"}, "none of the others can be"},
		{"not square", []string{"run", "--weights", "[[0,1]]"}, "weights must be square"},
		{"bad json", []string{"run", "--weights", "{"}, "weights must be a JSON matrix"},
		{"unknown optimizer", []string{"run", "--weights", exampleGraph, "--optimizer", "COBYLA"}, "unknown optimizer: COBYLA"},
		{"bad optimizer params", []string{"run", "--weights", exampleGraph, "--optimizer-params", "[]"}, "invalid --optimizer-params"},
		{"entangler map not json", []string{"run", "--weights", exampleGraph, "--entangler-map", "{"}, "invalid --entangler-map"},
		{"entangler map not a mapping", []string{"run", "--weights", exampleGraph, "--entangler-map", "[1]"}, "entangler map must be a mapping"},
		{"entangler map bad source", []string{"run", "--weights", exampleGraph, "--entangler-map", `{"a":[1]}`}, `source "a" is not an integer`},
		{"entangler map self edge", []string{"run", "--weights", exampleGraph, "--entangler-map", `{"2":[2]}`}, "self edge on qubit 2"},
		{"entangler map out of range", []string{"run", "--weights", exampleGraph, "--entangler-map", `{"0":[4]}`}, "target qubit 4 out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error()+out, tt.want)
		})
	}
}

func TestQASM(t *testing.T) {
	out, err := execute(t, "qasm", "--num-qubits", "2", "--depth", "1")
	require.NoError(t, err, out)

	assert.True(t, strings.HasPrefix(out, "OPENQASM 2.0;\n"))
	assert.Contains(t, out, "qreg q[2];")
	assert.Contains(t, out, "cx q[0],q[1];")
	assert.Contains(t, out, "measure q[1] -> c[1];")

	_, err = execute(t, "qasm", "--num-qubits", "2", "--depth", "1", "--params", "0.1,0.2")
	assert.Error(t, err)
}

func TestOptimizersAndVersion(t *testing.T) {
	out, err := execute(t, "optimizers")
	require.NoError(t, err)
	assert.Contains(t, out, "SequentialOptimizer")
	assert.Contains(t, out, "Mayfly")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vqo version "+version+"\n", out)
}
