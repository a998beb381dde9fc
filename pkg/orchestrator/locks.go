package orchestrator

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNodeBusy indicates another lifecycle operation currently holds the node
var ErrNodeBusy = errors.New("orchestrator: node busy")

// lockRegistry enforces mutual exclusion keyed on node identity. Running
// maintenance-enter and maintenance-exit concurrently on the same node is
// undefined; the second caller is rejected, not queued.
type lockRegistry struct {
	mu   sync.Mutex
	held map[string]bool
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{held: make(map[string]bool)}
}

// tryAcquire claims the node or fails immediately with ErrNodeBusy.
// The returned release function is idempotent.
func (r *lockRegistry) tryAcquire(nodeID string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held[nodeID] {
		return nil, errors.Wrapf(ErrNodeBusy, "node %s", nodeID)
	}
	r.held[nodeID] = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.held, nodeID)
		})
	}
	return release, nil
}
