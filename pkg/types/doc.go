/*
Package types defines the core data structures used throughout Berth.

This package contains the placement domain model: worker nodes and their
heartbeat-derived runtime snapshots, placement policies with affinity rules,
placement decisions and cluster summaries. These types flow between the
storage layer, the HTTP API and the placement engine.

# Core Types

Cluster Topology:
  - WorkerNode: A cluster member with static capacity and a runtime snapshot
  - NodeRole: Primary or worker
  - PortRange: Contiguous host port block owned by a node
  - NodeRuntime: Optional metrics reported by heartbeats

Placement:
  - PlacementPolicy: Strategy, capacity ceiling and affinity rules
  - AffinityRule: Static pin from a workload identifier to a node
  - PlacementDecision: Chosen node, host, port and justification
  - ClusterSummary: Fleet-wide aggregates for observability

# Optional Runtime Metrics

Every NodeRuntime field is a pointer. A nil field means the node has never
reported that metric, which is different from a reported zero:

	node := &types.WorkerNode{ID: "n1", PortRange: types.PortRange{Start: 8000, End: 8100}}
	node.IsHealthy()          // true, never reported
	node.InstanceCount()      // 0, never reported
	node.MemoryPercentOr(50)  // 50, caller-chosen default

	node.Runtime.Healthy = types.Ptr(false)
	node.IsHealthy()          // false

Defaults are resolved by the accessors at the point of use; the stored value
is never rewritten, so dashboards can still tell "unknown" from "zero".

# Validation

WorkerNode.Validate and PlacementPolicy.Validate report every violation at
once using go.uber.org/multierr. Each error wraps ErrInvalidNode or
ErrInvalidPolicy so callers can test with errors.Is.

An unknown strategy name is deliberately not a validation error; the
scheduler falls back to round-robin.
*/
package types
