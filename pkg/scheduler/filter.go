package scheduler

import "github.com/cuemby/berth/pkg/types"

// MemoryPressurePercent is the memory usage at or above which a node stops
// receiving new instances
const MemoryPressurePercent = 90.0

// FilterEligible returns the nodes that can take one more instance, in input
// order. Nodes without runtime metrics are treated as healthy and idle.
func FilterEligible(nodes []*types.WorkerNode, policy *types.PlacementPolicy) []*types.WorkerNode {
	eligible := make([]*types.WorkerNode, 0, len(nodes))
	for _, node := range nodes {
		if isEligible(node, policy) {
			eligible = append(eligible, node)
		}
	}
	return eligible
}

func isEligible(node *types.WorkerNode, policy *types.PlacementPolicy) bool {
	if node == nil {
		return false
	}
	if !node.IsHealthy() {
		return false
	}
	if node.InstanceCount() >= policy.MaxInstancesPerNode {
		return false
	}
	return node.MemoryPercentOr(0) < MemoryPressurePercent
}
