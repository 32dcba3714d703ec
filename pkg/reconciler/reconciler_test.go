package reconciler

import (
	"testing"
	"time"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/metrics"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func nodeWithHeartbeat(id string, heartbeat *time.Time) *types.WorkerNode {
	return &types.WorkerNode{
		ID:        id,
		Role:      types.NodeRoleWorker,
		PortRange: types.PortRange{Start: 8000, End: 8100},
		Runtime:   types.NodeRuntime{LastHeartbeat: heartbeat},
	}
}

func TestReconcileDrainsStaleNodes(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := storage.NewMemoryStore()
	require.NoError(t, store.PutNode(nodeWithHeartbeat("stale", types.Ptr(now.Add(-6*time.Minute)))))
	require.NoError(t, store.PutNode(nodeWithHeartbeat("fresh", types.Ptr(now.Add(-time.Minute)))))
	require.NoError(t, store.PutNode(nodeWithHeartbeat("new", nil)))

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()

	r := NewReconciler(store, broker, time.Minute)
	r.now = func() time.Time { return now }

	drained, err := r.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, drained)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodesDraining))

	stale, err := store.GetNode("stale")
	require.NoError(t, err)
	assert.False(t, stale.IsHealthy())
	assert.True(t, stale.HasTag(types.TagDrained))

	for _, id := range []string{"fresh", "new"} {
		n, err := store.GetNode(id)
		require.NoError(t, err)
		assert.True(t, n.IsHealthy(), id)
		assert.False(t, n.HasTag(types.TagDrained), id)
	}

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventNodeDraining, ev.Type)
		assert.Equal(t, "stale", ev.Metadata["node_id"])
	case <-time.After(time.Second):
		t.Fatal("no drain event")
	}

	// Already drained nodes are counted but not drained again
	drained, err = r.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, drained)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodesDraining))
}

func TestReconcilerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := storage.NewMemoryStore()
	require.NoError(t, store.PutNode(nodeWithHeartbeat("stale", types.Ptr(time.Now().Add(-time.Hour)))))

	r := NewReconciler(store, nil, 10*time.Millisecond)
	r.Start()
	require.Eventually(t, func() bool {
		n, err := store.GetNode("stale")
		return err == nil && !n.IsHealthy()
	}, time.Second, 5*time.Millisecond)
	r.Stop()
}

// laggingStore lists a snapshot taken before the latest heartbeat
type laggingStore struct {
	*storage.MemoryStore
	listed []*types.WorkerNode
}

func (s *laggingStore) ListNodes() ([]*types.WorkerNode, error) {
	return s.listed, nil
}

func TestReconcileSkipsNodeThatReportedSinceListing(t *testing.T) {
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.PutNode(nodeWithHeartbeat("n1", types.Ptr(now))))
	store := &laggingStore{
		MemoryStore: mem,
		listed:      []*types.WorkerNode{nodeWithHeartbeat("n1", types.Ptr(now.Add(-time.Hour)))},
	}

	r := NewReconciler(store, nil, time.Minute)
	r.now = func() time.Time { return now }

	drained, err := r.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, drained)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.NodesDraining))

	n, err := mem.GetNode("n1")
	require.NoError(t, err)
	assert.True(t, n.IsHealthy())
	assert.Empty(t, n.Tags)
}
