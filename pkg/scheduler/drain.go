package scheduler

import (
	"time"

	"github.com/cuemby/berth/pkg/types"
)

// DrainThreshold is how long a node may stay silent before it is a drain candidate
const DrainThreshold = 5 * time.Minute

// ShouldDrainNode reports whether node has been silent longer than DrainThreshold.
// Nodes that never sent a heartbeat are unknown, not stale, and are never drained.
func (s *Scheduler) ShouldDrainNode(node *types.WorkerNode) bool {
	return ShouldDrainNodeAt(node, s.now())
}

// ShouldDrainNodeAt is ShouldDrainNode evaluated at now
func ShouldDrainNodeAt(node *types.WorkerNode, now time.Time) bool {
	if node == nil || node.Runtime.LastHeartbeat == nil {
		return false
	}
	return now.Sub(*node.Runtime.LastHeartbeat) > DrainThreshold
}
