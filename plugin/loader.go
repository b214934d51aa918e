package plugin

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// ExecutorType is a resolved executor reference. It carries the run-wide
// external configuration token handed to every instance.
type ExecutorType struct {
	name    string
	factory types.ExecutorFactory

	configOnce sync.Once
	config     string
}

// Name returns the registered name of the executor
func (e *ExecutorType) Name() string {
	return e.name
}

// Config returns the external configuration token
func (e *ExecutorType) Config() string {
	return e.config
}

// setConfig stores the configuration token. Only the first call has an effect.
func (e *ExecutorType) setConfig(cfg string) {
	e.configOnce.Do(func() {
		e.config = cfg
	})
}

// New constructs an executor instance for one test case
func (e *ExecutorType) New(suitePath string, id int, logFolder string) (types.Executor, error) {
	exec, err := e.factory(types.ExecutorContext{
		SuitePath: suitePath,
		ID:        id,
		LogFolder: logFolder,
		Config:    e.config,
	})
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, types.NewPluginContractError(e.name, "executor factory returned no instance")
	}
	return exec, nil
}

// CoordinatorType is a resolved resource coordinator reference
type CoordinatorType struct {
	name    string
	factory types.CoordinatorFactory
}

// Name returns the registered name of the coordinator
func (c *CoordinatorType) Name() string {
	return c.name
}

// New constructs the resource coordinator of a run
func (c *CoordinatorType) New(ctx types.CoordinatorContext) (types.ResourceCoordinator, error) {
	coord, err := c.factory(ctx)
	if err != nil {
		return nil, err
	}
	if coord == nil {
		return nil, types.NewPluginContractError(c.name, "resource coordinator factory returned no instance")
	}
	return coord, nil
}

// Bundle is everything needed to run the tests of one type
type Bundle struct {
	TypeName    string
	Executor    *ExecutorType
	Coordinator *CoordinatorType // nil when the type declares no coordinator
	Schema      string           // Unresolved schema reference, empty when absent
}

// Loader resolves type definitions against a registry
type Loader struct {
	log      log.Logger
	registry *Registry
}

// NewLoader creates a loader. A nil registry selects the DefaultRegistry.
func NewLoader(logger log.Logger, registry *Registry) *Loader {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &Loader{
		log:      logger.New("component", "plugin-loader"),
		registry: registry,
	}
}

// Registry returns the registry the loader resolves against
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Load resolves a type definition into a bundle. externalConfig is stored on
// the executor type and passed to every executor instance.
func (l *Loader) Load(typeName string, def TypeDefinition, externalConfig string) (*Bundle, error) {
	if def.Executor == "" {
		return nil, types.NewConfigurationError("test type %q does not name an executor", typeName)
	}

	factory, ok := l.registry.Executor(def.Executor)
	if !ok {
		return nil, types.NewPluginContractError(def.Executor, "no executor registered (known: %v)", l.registry.ExecutorNames())
	}
	executor := &ExecutorType{name: def.Executor, factory: factory}
	executor.setConfig(externalConfig)

	bundle := &Bundle{
		TypeName: typeName,
		Executor: executor,
		Schema:   def.Schema,
	}

	if def.ResourceCoordinator != "" {
		coordFactory, ok := l.registry.Coordinator(def.ResourceCoordinator)
		if !ok {
			return nil, types.NewPluginContractError(def.ResourceCoordinator, "no resource coordinator registered")
		}
		bundle.Coordinator = &CoordinatorType{name: def.ResourceCoordinator, factory: coordFactory}
	}

	l.log.Debug("Loaded test type",
		"type", typeName,
		"executor", def.Executor,
		"coordinator", def.ResourceCoordinator,
		"schema", def.Schema)
	return bundle, nil
}
