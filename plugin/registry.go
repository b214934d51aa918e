package plugin

import (
	"sort"
	"sync"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// Registry maps plugin names to the factories that construct them. Plugins
// register themselves at startup; resolution happens once per run.
type Registry struct {
	mu           sync.RWMutex
	executors    map[string]types.ExecutorFactory
	coordinators map[string]types.CoordinatorFactory
	types        map[string]TypeDefinition
}

// DefaultRegistry is the process wide registry plugins register with from init functions
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		executors:    make(map[string]types.ExecutorFactory),
		coordinators: make(map[string]types.CoordinatorFactory),
		types:        make(map[string]TypeDefinition),
	}
}

// RegisterExecutor registers an executor factory under name
func (r *Registry) RegisterExecutor(name string, factory types.ExecutorFactory) error {
	if name == "" {
		return types.NewPluginContractError("executor", "executor name cannot be empty")
	}
	if factory == nil {
		return types.NewPluginContractError(name, "executor factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		return types.NewPluginContractError(name, "executor already registered")
	}
	r.executors[name] = factory
	return nil
}

// RegisterCoordinator registers a resource coordinator factory under name
func (r *Registry) RegisterCoordinator(name string, factory types.CoordinatorFactory) error {
	if name == "" {
		return types.NewPluginContractError("resource-coordinator", "resource coordinator name cannot be empty")
	}
	if factory == nil {
		return types.NewPluginContractError(name, "resource coordinator factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.coordinators[name]; exists {
		return types.NewPluginContractError(name, "resource coordinator already registered")
	}
	r.coordinators[name] = factory
	return nil
}

// RegisterType registers a built-in test type definition. Definitions from a
// catalog file take precedence over built-in ones.
func (r *Registry) RegisterType(name string, def TypeDefinition) error {
	if name == "" {
		return types.NewPluginContractError("type", "type name cannot be empty")
	}
	if def.Executor == "" {
		return types.NewPluginContractError(name, "type definition has no executor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return types.NewPluginContractError(name, "type already registered")
	}
	r.types[name] = def
	return nil
}

// Executor returns the executor factory registered under name
func (r *Registry) Executor(name string) (types.ExecutorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.executors[name]
	return f, ok
}

// Coordinator returns the resource coordinator factory registered under name
func (r *Registry) Coordinator(name string) (types.CoordinatorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.coordinators[name]
	return f, ok
}

// Types returns a copy of the built-in type definitions
func (r *Registry) Types() map[string]TypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]TypeDefinition, len(r.types))
	for name, def := range r.types {
		out[name] = def
	}
	return out
}

// ExecutorNames returns the sorted names of all registered executors
func (r *Registry) ExecutorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustRegisterExecutor registers with the DefaultRegistry and panics on error
func MustRegisterExecutor(name string, factory types.ExecutorFactory) {
	if err := DefaultRegistry.RegisterExecutor(name, factory); err != nil {
		panic(err)
	}
}

// MustRegisterCoordinator registers with the DefaultRegistry and panics on error
func MustRegisterCoordinator(name string, factory types.CoordinatorFactory) {
	if err := DefaultRegistry.RegisterCoordinator(name, factory); err != nil {
		panic(err)
	}
}

// MustRegisterType registers with the DefaultRegistry and panics on error
func MustRegisterType(name string, def TypeDefinition) {
	if err := DefaultRegistry.RegisterType(name, def); err != nil {
		panic(err)
	}
}
