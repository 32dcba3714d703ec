package scheduler

import "github.com/cuemby/berth/pkg/types"

// resolveAffinity pins workloadID to the node named by the first matching
// rule. It returns nil when no rule matches or when the pinned node is not
// in the eligible set; placement then falls through to the strategy.
func resolveAffinity(workloadID string, eligible []*types.WorkerNode, policy *types.PlacementPolicy) *types.PlacementDecision {
	if workloadID == "" {
		return nil
	}

	var rule *types.AffinityRule
	for i := range policy.AffinityRules {
		if policy.AffinityRules[i].Service == workloadID {
			rule = &policy.AffinityRules[i]
			break
		}
	}
	if rule == nil {
		return nil
	}

	for _, node := range eligible {
		if node.ID == rule.NodeID {
			return newDecision(node, types.StrategyAffinity, "Affinity: "+rule.Reason)
		}
	}
	return nil
}
