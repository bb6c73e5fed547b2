// Package backend executes circuits and returns their outcome distributions.
package backend

import (
	"context"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
	"github.com/copyleftdev/vqo/internal/varform"
)

const component = "backend"

// Backend names understood by New.
const (
	PackageSimulator     = "simulator"
	StatevectorSimulator = "statevector_simulator"
	QASMSimulator        = "qasm_simulator"
)

// DefaultShots is used when ExecuteParameters.Shots is not positive.
const DefaultShots = 1024

// Description selects a backend.
type Description struct {
	Package string `json:"package"`
	Name    string `json:"name"`
	Device  string `json:"device,omitempty"`
}

// ExecuteParameters carries per-run execution knobs.
type ExecuteParameters struct {
	Shots int `json:"shots"`
}

// Backend turns a circuit into a distribution over bit assignments.
type Backend interface {
	// Name identifies the backend.
	Name() string
	// Exact reports whether Run returns exact probabilities.
	Exact() bool
	// Run executes the circuit.
	Run(ctx context.Context, circuit *varform.Circuit, params ExecuteParameters) (Distribution, error)
}

// Option configures a simulator.
type Option func(*options)

type options struct {
	seed   uint64
	logger *zap.Logger
}

// WithSeed fixes the sampling seed.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New resolves a Description to a backend.
func New(desc Description, opts ...Option) (Backend, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if desc.Package != "" && desc.Package != PackageSimulator {
		return nil, vqoerrors.Errorf(vqoerrors.KindConfiguration, "unknown backend package %q", desc.Package).
			WithOperation("New").WithComponent(component)
	}

	switch desc.Name {
	case StatevectorSimulator:
		return NewStatevectorSimulator(), nil
	case QASMSimulator, "":
		return NewSamplingSimulator(o.seed, o.logger), nil
	default:
		return nil, vqoerrors.Errorf(vqoerrors.KindConfiguration, "unknown backend %q", desc.Name).
			WithOperation("New").WithComponent(component)
	}
}

// StatevectorSim returns exact amplitude distributions.
type StatevectorSim struct{}

// NewStatevectorSimulator creates an exact simulator.
func NewStatevectorSimulator() *StatevectorSim { return &StatevectorSim{} }

// Name returns "statevector_simulator".
func (*StatevectorSim) Name() string { return StatevectorSimulator }

// Exact returns true.
func (*StatevectorSim) Exact() bool { return true }

// Run simulates circuit and ignores the shot count.
func (*StatevectorSim) Run(ctx context.Context, circuit *varform.Circuit, _ ExecuteParameters) (Distribution, error) {
	psi, err := Statevector(ctx, circuit)
	if err != nil {
		return nil, err
	}
	return NewExactDistribution(circuit.NumQubits, psi)
}

// SamplingSim draws finite-shot histograms from the simulated state. One
// random stream is shared by all runs; Run is safe for concurrent use.
type SamplingSim struct {
	mu     sync.Mutex
	src    rand.Source
	logger *zap.Logger
}

// NewSamplingSimulator creates a sampling simulator. A zero seed still
// yields a deterministic stream.
func NewSamplingSimulator(seed uint64, logger *zap.Logger) *SamplingSim {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SamplingSim{
		src:    rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
		logger: logger.Named("qasm_simulator"),
	}
}

// Name returns "qasm_simulator".
func (*SamplingSim) Name() string { return QASMSimulator }

// Exact returns false.
func (*SamplingSim) Exact() bool { return false }

// Run simulates circuit and samples params.Shots outcomes.
func (s *SamplingSim) Run(ctx context.Context, circuit *varform.Circuit, params ExecuteParameters) (Distribution, error) {
	psi, err := Statevector(ctx, circuit)
	if err != nil {
		return nil, err
	}

	shots := params.Shots
	if shots <= 0 {
		shots = DefaultShots
	}

	n := circuit.NumQubits
	weights := make([]float64, len(psi))
	for i, a := range psi {
		weights[i] = real(a)*real(a) + imag(a)*imag(a)
	}

	s.mu.Lock()
	cat := distuv.NewCategorical(weights, s.src)
	memory := make([]string, shots)
	for i := range memory {
		memory[i] = bitsToKey(indexToBits(int(cat.Rand()), n))
	}
	s.mu.Unlock()

	s.logger.Debug("Sampled circuit",
		zap.Int("qubits", n),
		zap.Int("shots", shots),
	)

	return NewSampledDistribution(memory)
}
