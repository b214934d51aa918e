package plugin

import (
	"fmt"
	"sync"

	"github.com/ethereum-optimism/infra/suite-tester/types"
)

// PortPool hands out ports from a range to concurrently running tests
type PortPool struct {
	mu    sync.Mutex
	rng   types.PortRange
	next  int
	inUse map[int]struct{}
}

// NewPortPool creates a pool over the given range
func NewPortPool(rng types.PortRange) *PortPool {
	return &PortPool{
		rng:   rng,
		next:  rng.Start,
		inUse: make(map[int]struct{}),
	}
}

// Acquire returns a free port. Ports are handed out round robin so a released
// port is reused as late as possible.
func (p *PortPool) Acquire() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := p.rng.Size()
	for i := 0; i < size; i++ {
		port := p.next
		p.next++
		if p.next > p.rng.End {
			p.next = p.rng.Start
		}
		if _, taken := p.inUse[port]; !taken {
			p.inUse[port] = struct{}{}
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %s", p.rng)
}

// Release returns a port to the pool. Releasing a port that is not in use is a no-op.
func (p *PortPool) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
}

// InUse returns the number of acquired ports
func (p *PortPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}
