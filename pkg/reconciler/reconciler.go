package reconciler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/metrics"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"github.com/rs/zerolog"
)

// Reconciler is the drain monitor. It takes nodes whose heartbeats stopped
// out of placement rotation. It never moves workloads.
type Reconciler struct {
	store    storage.Store
	broker   *events.Broker
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewReconciler creates a new drain monitor. broker may be nil.
func NewReconciler(store storage.Store, broker *events.Broker, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		store:    store,
		broker:   broker,
		interval: interval,
		now:      time.Now,
		logger:   log.WithComponent("reconciler"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop stops the reconciler and waits for the loop to exit
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Reconciler) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("Drain cycle failed")
			}
		case <-r.stopCh:
			return
		}
	}
}

// Reconcile runs one drain cycle and returns the IDs of nodes it newly drained
func (r *Reconciler) Reconcile() ([]string, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.DrainCycleDuration)
		metrics.DrainCyclesTotal.Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	nodes, err := r.store.ListNodes()
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentDrain, false, err.Error())
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	metrics.UpdateComponent(metrics.ComponentDrain, true, "")

	now := r.now()
	stale := 0
	var drained []string
	for _, node := range nodes {
		if !scheduler.ShouldDrainNodeAt(node, now) {
			continue
		}
		stale++
		if node.HasTag(types.TagDrained) {
			continue
		}
		err := r.drain(node.ID, now)
		if errors.Is(err, errRecovered) {
			stale--
			continue
		}
		if err != nil {
			logger := log.WithNodeID(r.logger, node.ID)
			logger.Error().Err(err).Msg("Failed to drain node")
			continue
		}
		drained = append(drained, node.ID)
	}

	metrics.NodesDraining.Set(float64(stale))
	return drained, nil
}

// errRecovered aborts a drain when a heartbeat landed after the node was listed
var errRecovered = errors.New("node reported since listing")

// drain marks the node unhealthy and tags it so the next heartbeat can undo it
func (r *Reconciler) drain(id string, now time.Time) error {
	node, err := r.store.UpdateNode(id, func(n *types.WorkerNode) error {
		if !scheduler.ShouldDrainNodeAt(n, now) {
			return errRecovered
		}
		n.Runtime.Healthy = types.Ptr(false)
		if !n.HasTag(types.TagDrained) {
			n.Tags = append(n.Tags, types.TagDrained)
		}
		return nil
	})
	if err != nil {
		return err
	}

	silent := now.Sub(*node.Runtime.LastHeartbeat).Round(time.Second)
	logger := log.WithNodeID(r.logger, id)
	logger.Warn().
		Dur("silent_for", silent).
		Msg("Node heartbeat stale, draining")

	if r.broker != nil {
		r.broker.Publish(&events.Event{
			Type:    events.EventNodeDraining,
			Message: fmt.Sprintf("node %s silent for %s", id, silent),
			Metadata: map[string]string{
				"node_id":        id,
				"last_heartbeat": node.Runtime.LastHeartbeat.Format(time.RFC3339),
			},
		})
	}
	return nil
}
