package scheduler

import (
	"math"

	"github.com/cuemby/berth/pkg/types"
)

// Summarize aggregates fleet metrics. Capacity is the policy ceiling times the
// node count. Empty inputs yield zero values.
func Summarize(nodes []*types.WorkerNode, policy *types.PlacementPolicy) types.ClusterSummary {
	if policy == nil {
		policy = types.DefaultPolicy()
	}

	var summary types.ClusterSummary
	var memTotal float64
	for _, node := range nodes {
		if node == nil {
			continue
		}
		summary.TotalNodes++
		if node.IsHealthy() {
			summary.HealthyNodes++
		}
		summary.TotalPlugInstances += node.InstanceCount()
		memTotal += node.MemoryPercentOr(0)
	}

	summary.TotalCapacity = policy.MaxInstancesPerNode * summary.TotalNodes
	if summary.TotalCapacity > 0 {
		summary.Utilization = int(math.Round(float64(summary.TotalPlugInstances) / float64(summary.TotalCapacity) * 100))
	}
	if summary.TotalNodes > 0 {
		summary.AvgMemoryPct = int(math.Round(memTotal / float64(summary.TotalNodes)))
	}
	return summary
}

// ClusterSummary is Summarize bound to the scheduler, for callers holding one
func (s *Scheduler) ClusterSummary(nodes []*types.WorkerNode, policy *types.PlacementPolicy) types.ClusterSummary {
	return Summarize(nodes, policy)
}
