/*
Package reconciler runs Berth's drain monitor.

The placement engine only answers whether a node should be drained
(scheduler.ShouldDrainNode). This package is the periodic caller that acts on
the answer:

	┌────────────────────────────────────────────────────────────┐
	│                  Drain Cycle (every drain.interval)        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. List nodes from the registry                           │
	│  2. ShouldDrainNodeAt(node, now): heartbeat older than 5m  │
	│  3. Newly stale: Healthy=false, tag berth.io/drained,      │
	│     publish node.draining                                  │
	│  4. Set berth_nodes_draining to the stale count            │
	└────────────────────────────────────────────────────────────┘

Marking a node unhealthy removes it from the eligible set, so new plug
instances stop landing on it. Migrating existing instances is left to the
provisioning layer. Nodes that never sent a heartbeat are not drained.

When a drained node reports again, the heartbeat handler in pkg/api removes
the tag and clears the health flag it set, returning the node to rotation.
*/
package reconciler
