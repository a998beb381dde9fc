package orchestrator

import (
	"context"
	"sync"

	"github.com/stratacluster/strata/pkg/types"
)

// Operation is one node-level lifecycle transition
type Operation func(ctx context.Context, node *types.Node, policy types.RetryPolicy) types.OperationOutcome

// RunAll drives op across the node set concurrently. Each node's sequence
// runs to completion independently of the others; the per-node lock
// registry still guards against overlapping operations on one node.
// Outcomes are returned in the order of nodes.
func RunAll(ctx context.Context, nodes []*types.Node, policy types.RetryPolicy, op Operation) []types.OperationOutcome {
	outcomes := make([]types.OperationOutcome, len(nodes))

	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node *types.Node) {
			defer wg.Done()
			outcomes[i] = op(ctx, node, policy)
		}(i, node)
	}
	wg.Wait()

	return outcomes
}
