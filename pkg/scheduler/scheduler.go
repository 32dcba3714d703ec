package scheduler

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoCapacity is reported by transports when SelectNode finds no eligible node.
// SelectNode itself returns a nil decision; a full cluster is not an engine failure.
var ErrNoCapacity = errors.New("no eligible node: cluster at capacity")

// Scheduler places plug instances onto worker nodes.
//
// All methods are safe for concurrent use. The only state the scheduler owns
// is the round-robin cursor, which lives for the lifetime of the Scheduler.
type Scheduler struct {
	cursor atomic.Uint64
	now    func() time.Time
	logger zerolog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		now:    time.Now,
		logger: log.WithComponent("scheduler"),
	}
}

// SelectNode chooses a node for one plug instance.
//
// The eligible set is computed first; an affinity rule for workloadID pins the
// decision when its node is eligible, otherwise the policy strategy picks.
// A nil decision means no node can take the instance. A nil policy is
// treated as types.DefaultPolicy().
func (s *Scheduler) SelectNode(nodes []*types.WorkerNode, policy *types.PlacementPolicy, workloadID string) *types.PlacementDecision {
	if policy == nil {
		policy = types.DefaultPolicy()
	}

	logger := log.WithWorkloadID(s.logger, workloadID)

	eligible := FilterEligible(nodes, policy)
	if len(eligible) == 0 {
		logger.Debug().
			Int("nodes", len(nodes)).
			Msg("No eligible node")
		return nil
	}

	decision := resolveAffinity(workloadID, eligible, policy)
	if decision == nil {
		decision = s.selectByStrategy(eligible, policy)
	}

	decision.ID = uuid.New().String()
	decision.WorkloadID = workloadID
	decision.CreatedAt = s.now()

	logger.Debug().
		Str("decision_id", decision.ID).
		Str("node_id", decision.NodeID).
		Int("port", decision.Port).
		Str("strategy", string(decision.Strategy)).
		Msg(decision.Reason)

	return decision
}

// newDecision builds the node-derived part of a decision
func newDecision(node *types.WorkerNode, strategy types.Strategy, reason string) *types.PlacementDecision {
	return &types.PlacementDecision{
		NodeID:   node.ID,
		Host:     node.Host,
		Port:     AllocatePort(node),
		Strategy: strategy,
		Reason:   reason,
	}
}
