package backend

import (
	"math/bits"
	"strings"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// Outcome is one bit assignment of a distribution with its weight. For an
// exact distribution the weight is a probability, for a sampled one it is
// the empirical frequency.
type Outcome struct {
	// Key is the assignment as a string where character k is qubit k.
	Key string
	// Bits is the assignment as 0/1 integers, Bits[k] is qubit k.
	Bits []int
	// Weight is the probability mass or frequency of the assignment.
	Weight float64
}

// Distribution is the result of executing a circuit.
type Distribution interface {
	// Outcomes returns the assignments in a deterministic order.
	Outcomes() []Outcome
	// Exact reports whether weights are exact probabilities.
	Exact() bool
}

// ExactDistribution is an amplitude vector. Index i of the vector has qubit
// k in bit k of i.
type ExactDistribution struct {
	numQubits  int
	amplitudes []complex128
}

// NewExactDistribution wraps an amplitude vector of length 2^numQubits.
func NewExactDistribution(numQubits int, amplitudes []complex128) (*ExactDistribution, error) {
	if numQubits < 1 || len(amplitudes) != 1<<numQubits {
		return nil, vqoerrors.Errorf(vqoerrors.KindDataConsistency,
			"amplitude vector of length %d does not match %d qubits", len(amplitudes), numQubits).
			WithOperation("NewExactDistribution").WithComponent(component)
	}
	return &ExactDistribution{
		numQubits:  numQubits,
		amplitudes: append([]complex128(nil), amplitudes...),
	}, nil
}

// Exact returns true.
func (d *ExactDistribution) Exact() bool { return true }

// NumQubits returns the register width.
func (d *ExactDistribution) NumQubits() int { return d.numQubits }

// Outcomes returns every basis state with weight |amplitude|², ordered by
// ascending key.
func (d *ExactDistribution) Outcomes() []Outcome {
	n := d.numQubits
	out := make([]Outcome, 0, len(d.amplitudes))
	for j := range d.amplitudes {
		// Ascending j read most-significant-first is ascending key order
		// once bits are reversed into qubit order.
		i := int(bits.Reverse64(uint64(j)) >> (64 - n))
		a := d.amplitudes[i]
		b := indexToBits(i, n)
		out = append(out, Outcome{
			Key:    bitsToKey(b),
			Bits:   b,
			Weight: real(a)*real(a) + imag(a)*imag(a),
		})
	}
	return out
}

// SampledDistribution is a finite-shot histogram. Outcomes are ordered by
// the shot in which each assignment was first observed.
type SampledDistribution struct {
	order  []string
	counts map[string]int
	shots  int
}

// NewSampledDistribution builds a histogram from per-shot keys.
func NewSampledDistribution(memory []string) (*SampledDistribution, error) {
	d := &SampledDistribution{counts: make(map[string]int)}
	for _, key := range memory {
		if err := validateKey(key); err != nil {
			return nil, err
		}
		if _, ok := d.counts[key]; !ok {
			d.order = append(d.order, key)
		}
		d.counts[key]++
		d.shots++
	}
	return d, nil
}

// Exact returns false.
func (d *SampledDistribution) Exact() bool { return false }

// Shots returns the total number of samples.
func (d *SampledDistribution) Shots() int { return d.shots }

// Counts returns a copy of the histogram.
func (d *SampledDistribution) Counts() map[string]int {
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Outcomes returns each observed assignment with its frequency.
func (d *SampledDistribution) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, Outcome{
			Key:    key,
			Bits:   keyToBits(key),
			Weight: float64(d.counts[key]) / float64(d.shots),
		})
	}
	return out
}

func indexToBits(i, n int) []int {
	b := make([]int, n)
	for k := 0; k < n; k++ {
		b[k] = (i >> k) & 1
	}
	return b
}

func bitsToKey(b []int) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		if v == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func keyToBits(key string) []int {
	b := make([]int, len(key))
	for k := range key {
		if key[k] == '1' {
			b[k] = 1
		}
	}
	return b
}

func validateKey(key string) error {
	if key == "" {
		return vqoerrors.New(vqoerrors.KindDataConsistency, "empty outcome key").
			WithComponent(component)
	}
	for _, c := range key {
		if c != '0' && c != '1' {
			return vqoerrors.Errorf(vqoerrors.KindDataConsistency, "outcome key %q is not a bitstring", key).
				WithComponent(component)
		}
	}
	return nil
}
