package echo

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/suite-tester/plugin"
	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// Coordinator plans one port per test of the batch before any test runs
type Coordinator struct {
	pool *plugin.PortPool

	mu       sync.Mutex
	ports    map[int]int
	shutdown bool
}

var _ types.ResourceCoordinator = (*Coordinator)(nil)

// NewCoordinator implements types.CoordinatorFactory
func NewCoordinator(ctx types.CoordinatorContext) (types.ResourceCoordinator, error) {
	c := &Coordinator{
		pool:  plugin.NewPortPool(ctx.Ports),
		ports: make(map[int]int, len(ctx.Jobs)),
	}
	for _, job := range ctx.Jobs {
		port, err := c.pool.Acquire()
		if err != nil {
			return nil, fmt.Errorf("planning port for test '%s': %w", job.Name, err)
		}
		c.ports[job.ID] = port
	}
	log.Debug("Planned echo ports", "tests", len(ctx.Jobs), "range", ctx.Ports, "preloaded", ctx.UsePreloaded)
	return c, nil
}

// Port returns the port planned for a test id
func (c *Coordinator) Port(id int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return 0, false
	}
	port, ok := c.ports[id]
	return port, ok
}

// Shutdown releases every planned port
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return nil
	}
	c.shutdown = true
	for _, port := range c.ports {
		c.pool.Release(port)
	}
	return nil
}
