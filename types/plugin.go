package types

import (
	"context"

	"github.com/beevik/etree"
)

// Executor runs a single test case. A new instance is created for every job.
type Executor interface {
	// Record returns the mutable output, failure and error lines of this instance
	Record() *Record

	// Run executes the test described by the wrapping document. buildFolder is
	// private to this test and coordinator is the run-wide resource coordinator,
	// nil when the test type declares none. A returned error is recorded as a
	// test error.
	Run(ctx context.Context, doc *etree.Document, buildFolder string, coordinator ResourceCoordinator) error

	// Shutdown releases everything the executor acquired. It must be safe to call
	// more than once.
	Shutdown() error
}

// ExecutorContext carries the arguments an executor is constructed from
type ExecutorContext struct {
	SuitePath string // Absolute path of the suite document the test came from
	ID        int    // Batch unique test id
	LogFolder string // Folder whose files are archived after the run
	Config    string // Run-wide external configuration token, shared by every instance
}

// ExecutorFactory constructs an executor for one test case
type ExecutorFactory func(ExecutorContext) (Executor, error)

// ResourceCoordinator is shared by every test of a run and is constructed once
// before dispatch. The core provides no synchronization; implementations must be
// safe for concurrent use by all workers.
type ResourceCoordinator interface {
	Shutdown() error
}

// CoordinatorContext carries the arguments a resource coordinator is constructed from
type CoordinatorContext struct {
	ResourceFolder      string        // Folder the coordinator may use, exists on construction
	Jobs                []JobMetadata // Every job of the batch, for upfront planning
	UsePreloaded        bool          // Whether preloaded resources may be used
	ConfiguredResources string        // Optional path to an external resource configuration
	Ports               PortRange     // Range to allocate ports from
}

// CoordinatorFactory constructs the resource coordinator of a run
type CoordinatorFactory func(CoordinatorContext) (ResourceCoordinator, error)
