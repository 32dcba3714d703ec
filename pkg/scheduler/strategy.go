package scheduler

import (
	"fmt"
	"sort"

	"github.com/cuemby/berth/pkg/types"
)

const (
	memoryWeight    = 0.6
	instancesWeight = 0.4

	// defaultMemoryPercent is assumed for nodes that never reported memory
	defaultMemoryPercent = 50.0
)

// selectByStrategy picks among a non-empty eligible set. Unknown strategies
// fall back to round-robin.
func (s *Scheduler) selectByStrategy(eligible []*types.WorkerNode, policy *types.PlacementPolicy) *types.PlacementDecision {
	switch policy.Strategy {
	case types.StrategyLeastLoaded:
		return selectLeastLoaded(eligible, policy)
	case types.StrategyRoundRobin:
		return s.selectRoundRobin(eligible)
	default:
		s.logger.Warn().
			Str("strategy", string(policy.Strategy)).
			Msg("Unknown placement strategy, using round-robin")
		return s.selectRoundRobin(eligible)
	}
}

// LoadScore is the least-loaded composite score of a node; lower is better
func LoadScore(node *types.WorkerNode, policy *types.PlacementPolicy) float64 {
	mem := node.MemoryPercentOr(defaultMemoryPercent)
	var instancePct float64
	if policy.MaxInstancesPerNode > 0 {
		instancePct = float64(node.InstanceCount()) / float64(policy.MaxInstancesPerNode) * 100
	}
	return memoryWeight*mem + instancesWeight*instancePct
}

type scoredNode struct {
	node  *types.WorkerNode
	score float64
}

func selectLeastLoaded(eligible []*types.WorkerNode, policy *types.PlacementPolicy) *types.PlacementDecision {
	scored := make([]scoredNode, len(eligible))
	for i, node := range eligible {
		scored[i] = scoredNode{node: node, score: LoadScore(node, policy)}
	}

	// Stable so equal scores keep input order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score < scored[j].score
	})

	best := scored[0]
	return newDecision(best.node, types.StrategyLeastLoaded,
		fmt.Sprintf("Least loaded (score %.1f)", best.score))
}

// selectRoundRobin advances the cursor on every call, even if the eligible
// set changed since the last one. Rotation is approximate.
func (s *Scheduler) selectRoundRobin(eligible []*types.WorkerNode) *types.PlacementDecision {
	cursor := s.cursor.Add(1) - 1
	idx := int(cursor % uint64(len(eligible)))
	return newDecision(eligible[idx], types.StrategyRoundRobin,
		fmt.Sprintf("Round robin (slot %d of %d)", idx+1, len(eligible)))
}
