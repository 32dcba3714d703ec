package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/types"
	"github.com/go-chi/chi/v5"
)

// DrainResponse answers GET /v1/nodes/{id}/drain
type DrainResponse struct {
	NodeID        string     `json:"node_id"`
	Drain         bool       `json:"drain"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []*types.WorkerNode{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.store.GetNode(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handlePutNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var node types.WorkerNode
	if err := decodeJSON(r, &node); err != nil {
		writeError(w, err)
		return
	}
	if node.ID == "" {
		node.ID = id
	}
	if node.ID != id {
		writeError(w, fmt.Errorf("%w: body id %q does not match path id %q", errBadRequest, node.ID, id))
		return
	}
	if err := node.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	if err := s.store.PutNode(&node); err != nil {
		writeError(w, err)
		return
	}

	logger := log.WithNodeID(s.logger, id)
	logger.Info().Str("host", node.Host).Msg("Node registered")
	s.publish(&events.Event{
		Type:     events.EventNodeUpdated,
		Message:  "node " + id + " registered",
		Metadata: map[string]string{"node_id": id},
	})
	writeJSON(w, http.StatusOK, &node)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteNode(id); err != nil {
		writeError(w, err)
		return
	}

	logger := log.WithNodeID(s.logger, id)
	logger.Info().Msg("Node removed")
	s.publish(&events.Event{
		Type:     events.EventNodeRemoved,
		Message:  "node " + id + " removed",
		Metadata: map[string]string{"node_id": id},
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleHeartbeat merges a runtime snapshot into the stored node. Fields the
// heartbeat omits keep their previous value.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update types.NodeRuntime
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, err)
		return
	}
	if err := update.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if update.LastHeartbeat == nil {
		update.LastHeartbeat = types.Ptr(s.now().UTC())
	}

	logger := log.WithNodeID(s.logger, id)
	node, err := s.store.UpdateNode(id, func(n *types.WorkerNode) error {
		if n.HasTag(types.TagDrained) {
			n.RemoveTag(types.TagDrained)
			// Undo the drain monitor's health mark unless the node reports its own
			n.Runtime.Healthy = nil
			logger.Info().Msg("Drained node reported again, returning to rotation")
		}
		n.Runtime = n.Runtime.Merge(update)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	node, err := s.store.GetNode(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DrainResponse{
		NodeID:        node.ID,
		Drain:         s.sched.ShouldDrainNode(node),
		LastHeartbeat: node.Runtime.LastHeartbeat,
	})
}
