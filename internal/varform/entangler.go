package varform

import (
	"sort"
	"strconv"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// Entanglement styles understood by EntanglerMapFor.
const (
	EntanglementFull   = "full"
	EntanglementLinear = "linear"
)

// EntanglerMap maps a source qubit to the ordered list of target qubits it
// is entangled with in every layer.
type EntanglerMap map[int][]int

// Pair is one source/target entangling edge.
type Pair struct {
	Source int
	Target int
}

// Sources returns the source qubits in ascending order.
func (m EntanglerMap) Sources() []int {
	sources := make([]int, 0, len(m))
	for s := range m {
		sources = append(sources, s)
	}
	sort.Ints(sources)
	return sources
}

// Pairs returns every edge, sources ascending and targets in list order.
func (m EntanglerMap) Pairs() []Pair {
	var pairs []Pair
	for _, s := range m.Sources() {
		for _, t := range m[s] {
			pairs = append(pairs, Pair{Source: s, Target: t})
		}
	}
	return pairs
}

// Clone returns a deep copy of the map.
func (m EntanglerMap) Clone() EntanglerMap {
	if m == nil {
		return nil
	}
	out := make(EntanglerMap, len(m))
	for s, targets := range m {
		out[s] = append([]int(nil), targets...)
	}
	return out
}

// EntanglerMapFor derives the entangler map for a named style. "full"
// connects every unordered pair exactly once, "linear" connects each qubit
// to its successor.
func EntanglerMapFor(style string, numQubits int) (EntanglerMap, error) {
	const op = "EntanglerMapFor"

	if numQubits < 1 {
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "number of qubits must be positive, got %d", numQubits).
			WithOperation(op).WithComponent(component)
	}

	m := make(EntanglerMap)
	switch style {
	case EntanglementFull:
		for i := 0; i < numQubits-1; i++ {
			for j := i + 1; j < numQubits; j++ {
				m[i] = append(m[i], j)
			}
		}
	case EntanglementLinear, "":
		for i := 0; i < numQubits-1; i++ {
			m[i] = []int{i + 1}
		}
	default:
		return nil, vqoerrors.Errorf(vqoerrors.KindContract, "unknown entanglement style %q", style).
			WithOperation(op).WithComponent(component)
	}
	return m, nil
}

// ValidateEntanglerMap checks that every index lies in [0, numQubits) and
// that the map has no self edges or repeated pairs. It returns a copy of the
// map on success.
func ValidateEntanglerMap(m EntanglerMap, numQubits int) (EntanglerMap, error) {
	const op = "ValidateEntanglerMap"

	if m == nil {
		return nil, vqoerrors.New(vqoerrors.KindContract, "entangler map must not be nil").
			WithOperation(op).WithComponent(component)
	}

	seen := make(map[Pair]struct{})
	for _, p := range m.Pairs() {
		if p.Source < 0 || p.Source >= numQubits {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "source qubit %d out of range [0, %d)", p.Source, numQubits).
				WithOperation(op).WithComponent(component)
		}
		if p.Target < 0 || p.Target >= numQubits {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "target qubit %d out of range [0, %d)", p.Target, numQubits).
				WithOperation(op).WithComponent(component)
		}
		if p.Source == p.Target {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "self edge on qubit %d", p.Source).
				WithOperation(op).WithComponent(component)
		}
		key := p
		if key.Source > key.Target {
			key = Pair{Source: p.Target, Target: p.Source}
		}
		if _, dup := seen[key]; dup {
			return nil, vqoerrors.Errorf(vqoerrors.KindContract, "duplicate edge %d-%d", p.Source, p.Target).
				WithOperation(op).WithComponent(component)
		}
		seen[key] = struct{}{}
	}
	return m.Clone(), nil
}

// ParseEntanglerMap converts a loosely typed map, typically decoded from
// JSON, into a validated EntanglerMap.
func ParseEntanglerMap(raw any, numQubits int) (EntanglerMap, error) {
	const op = "ParseEntanglerMap"

	malformed := func(format string, args ...any) error {
		return vqoerrors.Errorf(vqoerrors.KindContract, format, args...).
			WithOperation(op).WithComponent(component)
	}

	switch v := raw.(type) {
	case EntanglerMap:
		return ValidateEntanglerMap(v, numQubits)
	case map[int][]int:
		return ValidateEntanglerMap(EntanglerMap(v), numQubits)
	case map[string]any:
		m := make(EntanglerMap, len(v))
		for key, targets := range v {
			source, err := strconv.Atoi(key)
			if err != nil {
				return nil, malformed("source %q is not an integer", key)
			}
			list, ok := targets.([]any)
			if !ok {
				return nil, malformed("targets of source %d must be a list, got %T", source, targets)
			}
			for _, t := range list {
				idx, ok := asIndex(t)
				if !ok {
					return nil, malformed("target %v of source %d is not an integer", t, source)
				}
				m[source] = append(m[source], idx)
			}
		}
		return ValidateEntanglerMap(m, numQubits)
	default:
		return nil, malformed("entangler map must be a mapping, got %T", raw)
	}
}

func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
