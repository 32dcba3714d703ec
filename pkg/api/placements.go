package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/metrics"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
)

// PlacementRequest asks for a node for one plug instance
type PlacementRequest struct {
	WorkloadID string `json:"workload_id,omitempty"`

	// DryRun returns the decision without counting the instance against the node
	DryRun bool `json:"dry_run,omitempty"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	logger := log.WithWorkloadID(s.logger, req.WorkloadID)

	s.placeMu.Lock()
	defer s.placeMu.Unlock()

	nodes, err := s.store.ListNodes()
	if err != nil {
		writeError(w, fmt.Errorf("failed to list nodes: %w", err))
		return
	}
	policy, err := storage.PolicyOrDefault(s.store)
	if err != nil {
		writeError(w, fmt.Errorf("failed to load policy: %w", err))
		return
	}

	timer := metrics.NewTimer()
	decision := s.sched.SelectNode(nodes, policy, req.WorkloadID)
	timer.ObserveDuration(metrics.PlacementLatency)

	if decision == nil {
		metrics.PlacementsTotal.WithLabelValues(strategyLabel(policy.Strategy), metrics.OutcomeNoCapacity).Inc()
		logger.Warn().
			Int("nodes", len(nodes)).
			Msg("No capacity for placement")
		s.publish(&events.Event{
			Type:     events.EventPlacementNoCapacity,
			Message:  "no eligible node",
			Metadata: map[string]string{"workload_id": req.WorkloadID},
		})
		writeError(w, scheduler.ErrNoCapacity)
		return
	}
	metrics.PlacementsTotal.WithLabelValues(string(decision.Strategy), metrics.OutcomePlaced).Inc()

	if !req.DryRun {
		// Count the instance until the node's next heartbeat reports the real figure
		_, err := s.store.UpdateNode(decision.NodeID, func(n *types.WorkerNode) error {
			n.Runtime.Instances = types.Ptr(n.InstanceCount() + 1)
			return nil
		})
		if err != nil {
			writeError(w, fmt.Errorf("failed to account placement on %s: %w", decision.NodeID, err))
			return
		}
	}

	logger.Info().
		Str("decision_id", decision.ID).
		Str("node_id", decision.NodeID).
		Int("port", decision.Port).
		Bool("dry_run", req.DryRun).
		Msg(decision.Reason)

	s.publish(&events.Event{
		Type:    events.EventPlacementCreated,
		Message: decision.Reason,
		Metadata: map[string]string{
			"decision_id": decision.ID,
			"workload_id": decision.WorkloadID,
			"node_id":     decision.NodeID,
			"port":        strconv.Itoa(decision.Port),
		},
	})

	writeJSON(w, http.StatusCreated, decision)
}

// strategyLabel bounds the label set for configured strategies
func strategyLabel(s types.Strategy) string {
	if types.KnownStrategy(s) {
		return string(s)
	}
	return "unknown"
}
