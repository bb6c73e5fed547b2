package varform

import (
	"fmt"
	"strconv"
	"strings"
)

// Gate names emitted by the variational forms.
const (
	GateU1      = "u1"
	GateU2      = "u2"
	GateU3      = "u3"
	GateCX      = "cx"
	GateH       = "h"
	GateX       = "x"
	GateBarrier = "barrier"
)

// Op is a single circuit instruction.
type Op struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

// Circuit is a gate-level description of a circuit over one quantum and
// one classical register of equal width.
type Circuit struct {
	NumQubits int  `json:"num_qubits"`
	Ops       []Op `json:"ops"`
}

// NewCircuit creates an empty circuit on numQubits qubits.
func NewCircuit(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// U1 applies a phase rotation.
func (c *Circuit) U1(lambda float64, q int) {
	c.Ops = append(c.Ops, Op{Name: GateU1, Qubits: []int{q}, Params: []float64{lambda}})
}

// U2 applies a single-pulse gate. U2(0, π) is a Hadamard.
func (c *Circuit) U2(phi, lambda float64, q int) {
	c.Ops = append(c.Ops, Op{Name: GateU2, Qubits: []int{q}, Params: []float64{phi, lambda}})
}

// U3 applies a general single-qubit rotation.
func (c *Circuit) U3(theta, phi, lambda float64, q int) {
	c.Ops = append(c.Ops, Op{Name: GateU3, Qubits: []int{q}, Params: []float64{theta, phi, lambda}})
}

// CX applies a controlled NOT.
func (c *Circuit) CX(control, target int) {
	c.Ops = append(c.Ops, Op{Name: GateCX, Qubits: []int{control, target}})
}

// H applies a Hadamard.
func (c *Circuit) H(q int) {
	c.Ops = append(c.Ops, Op{Name: GateH, Qubits: []int{q}})
}

// X applies a bit flip.
func (c *Circuit) X(q int) {
	c.Ops = append(c.Ops, Op{Name: GateX, Qubits: []int{q}})
}

// Barrier inserts a synchronisation barrier across every qubit.
func (c *Circuit) Barrier() {
	qubits := make([]int, c.NumQubits)
	for i := range qubits {
		qubits[i] = i
	}
	c.Ops = append(c.Ops, Op{Name: GateBarrier, Qubits: qubits})
}

// Count returns how many instructions carry the given name.
func (c *Circuit) Count(name string) int {
	n := 0
	for _, op := range c.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// QASM renders the circuit as OpenQASM 2.0 with a final measurement of every
// qubit into the classical register.
func (c *Circuit) QASM() string {
	var b strings.Builder

	b.WriteString("OPENQASM 2.0;\n")
	b.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&b, "qreg q[%d];\n", c.NumQubits)
	fmt.Fprintf(&b, "creg c[%d];\n\n", c.NumQubits)

	for _, op := range c.Ops {
		b.WriteString(op.Name)
		if len(op.Params) > 0 {
			params := make([]string, len(op.Params))
			for i, p := range op.Params {
				params[i] = strconv.FormatFloat(p, 'g', -1, 64)
			}
			b.WriteString("(" + strings.Join(params, ",") + ")")
		}
		qubits := make([]string, len(op.Qubits))
		for i, q := range op.Qubits {
			qubits[i] = fmt.Sprintf("q[%d]", q)
		}
		b.WriteString(" " + strings.Join(qubits, ",") + ";\n")
	}

	b.WriteString("\n")
	for i := 0; i < c.NumQubits; i++ {
		fmt.Fprintf(&b, "measure q[%d] -> c[%d];\n", i, i)
	}
	return b.String()
}
