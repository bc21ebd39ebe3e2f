package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/logging"
)

// Factory creates a backend from configuration.
type Factory func(cfg BackendConfig, logger *logging.Logger) (core.Model, error)

// Registry manages the available model backends.
type Registry struct {
	factories map[string]Factory
	configs   map[string]BackendConfig
	models    map[string]core.Model
	logger    *logging.Logger
	mu        sync.Mutex
}

// NewRegistry creates a registry with the built-in backends registered.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Registry{
		factories: make(map[string]Factory),
		configs:   make(map[string]BackendConfig),
		models:    make(map[string]core.Model),
		logger:    logger,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.RegisterFactory(core.BackendOpenAI, func(cfg BackendConfig, _ *logging.Logger) (core.Model, error) {
		return NewOpenAIModel(cfg)
	})
	r.RegisterFactory(core.BackendGemini, func(cfg BackendConfig, _ *logging.Logger) (core.Model, error) {
		return NewGeminiModel(cfg)
	})
	r.RegisterFactory(core.BackendCLI, func(cfg BackendConfig, logger *logging.Logger) (core.Model, error) {
		m, err := NewCLIModel(cfg, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
	r.RegisterFactory(core.BackendHeuristic, func(cfg BackendConfig, _ *logging.Logger) (core.Model, error) {
		return NewHeuristicModel(cfg), nil
	})
}

// RegisterFactory registers a factory for a backend name.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.models, name)
}

// Configure sets configuration for a backend.
func (r *Registry) Configure(name string, cfg BackendConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.Name == "" {
		cfg.Name = name
	}
	r.configs[name] = cfg
	// Clear cached model to force re-creation
	delete(r.models, name)
}

// Get returns a backend by name, creating it if necessary.
func (r *Registry) Get(name string) (core.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[name]; ok {
		return m, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, core.ErrValidation(core.CodeUnknownBackend, fmt.Sprintf("unknown backend %q", name))
	}

	cfg, ok := r.configs[name]
	if !ok {
		cfg = BackendConfig{Name: name}
	}

	m, err := factory(cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("creating backend %s: %w", name, err)
	}
	r.models[name] = m
	return m, nil
}

// Has checks if a backend is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

// List returns the registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildChain resolves names into a Chain, in order.
func (r *Registry) BuildChain(names []string, opts ChainOptions) (*Chain, error) {
	backends := make([]core.Model, 0, len(names))
	for _, name := range names {
		m, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		backends = append(backends, m)
	}
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	return NewChain(backends, opts)
}
