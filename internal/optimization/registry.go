package optimization

import (
	"sort"

	"go.uber.org/zap"

	vqoerrors "github.com/copyleftdev/vqo/internal/errors"
)

// Factory builds an optimizer from its hyperparameters.
type Factory func(params Parameters, logger *zap.Logger) (Optimizer, error)

// Registry is an immutable name → factory table.
type Registry struct {
	name      string
	factories map[string]Factory
}

// NewRegistry copies factories into a new registry.
func NewRegistry(name string, factories map[string]Factory) *Registry {
	r := &Registry{name: name, factories: make(map[string]Factory, len(factories))}
	for k, f := range factories {
		r.factories[k] = f
	}
	return r
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for k := range r.factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Resolver looks names up in a fixed priority list of registries.
type Resolver struct {
	registries []*Registry
}

// NewResolver creates a resolver that checks registries in the given order.
func NewResolver(registries ...*Registry) *Resolver {
	return &Resolver{registries: append([]*Registry(nil), registries...)}
}

// Lookup returns the factory for name and the name of the registry that
// provided it.
func (r *Resolver) Lookup(name string) (Factory, string, bool) {
	for _, reg := range r.registries {
		if f, ok := reg.Lookup(name); ok {
			return f, reg.Name(), true
		}
	}
	return nil, "", false
}

// Resolve builds the optimizer registered under name. An unknown name is a
// configuration error.
func (r *Resolver) Resolve(name string, params Parameters, logger *zap.Logger) (Optimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, source, ok := r.Lookup(name)
	if !ok {
		return nil, vqoerrors.Errorf(vqoerrors.KindConfiguration, "unknown optimizer: %s", name).
			WithOperation("Resolve").WithComponent(component)
	}
	opt, err := f(params, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved optimizer",
		zap.String("optimizer", name),
		zap.String("registry", source),
	)
	return opt, nil
}

// Names returns every resolvable name, in priority order with duplicates
// removed.
func (r *Resolver) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, reg := range r.registries {
		for _, n := range reg.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// Registry names.
const (
	LocalRegistry    = "local"
	FallbackRegistry = "fallback"
)

var (
	// Local holds the optimizers implemented in this package. It is checked
	// first.
	Local = NewRegistry(LocalRegistry, map[string]Factory{
		"SequentialOptimizer":  newSequentialFromParameters,
		"RandomSearch":         newRandomSearchFromParameters,
		"BayesianOptimization": newBayesianFromParameters,
	})

	// Fallback holds adapters over external optimization libraries.
	Fallback = NewRegistry(FallbackRegistry, map[string]Factory{
		"NelderMead": newNelderMeadFromParameters,
		"CMAES":      newCMAESFromParameters,
		"Mayfly":     newMayflyFromParameters,
	})

	defaultResolver = NewResolver(Local, Fallback)
)

// Default returns the process-wide resolver over Local then Fallback.
func Default() *Resolver { return defaultResolver }

// Resolve resolves name with the default resolver.
func Resolve(name string, params Parameters, logger *zap.Logger) (Optimizer, error) {
	return defaultResolver.Resolve(name, params, logger)
}
