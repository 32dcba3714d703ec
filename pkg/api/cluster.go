package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		writeError(w, err)
		return
	}
	policy, err := storage.PolicyOrDefault(s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sched.ClusterSummary(nodes, policy))
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := storage.PolicyOrDefault(s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (s *Server) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	var policy types.PlacementPolicy
	if err := decodeJSON(r, &policy); err != nil {
		writeError(w, err)
		return
	}
	if err := policy.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if !types.KnownStrategy(policy.Strategy) {
		s.logger.Warn().
			Str("strategy", string(policy.Strategy)).
			Msg("Unknown strategy stored, placements will use round-robin")
	}

	if err := s.store.PutPolicy(&policy); err != nil {
		writeError(w, err)
		return
	}

	s.publish(&events.Event{
		Type:     events.EventPolicyUpdated,
		Message:  "placement policy updated",
		Metadata: map[string]string{"strategy": string(policy.Strategy)},
	})
	writeJSON(w, http.StatusOK, &policy)
}

// handleEvents streams broker events as newline-delimited JSON until the
// client disconnects or the server shuts down
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "event streaming disabled"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("streaming unsupported"))
		return
	}

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.shutdownCh:
			return
		case ev, open := <-sub:
			if !open {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
