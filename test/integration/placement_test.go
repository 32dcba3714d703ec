package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/types"
	"github.com/cuemby/berth/test/framework"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerNodes(t *testing.T, c *framework.Cluster, count int) {
	t.Helper()
	for i := 1; i <= count; i++ {
		_, err := c.Client.PutNode(&types.WorkerNode{
			ID:           fmt.Sprintf("node-%d", i),
			Host:         fmt.Sprintf("10.0.0.%d", i),
			Role:         types.NodeRoleWorker,
			Cores:        4,
			MemoryGB:     8,
			MaxInstances: 10,
			PortRange:    types.PortRange{Start: 9000, End: 9100},
		})
		require.NoError(t, err)
	}
}

// TestPlacementFillsCluster places until the policy ceiling is reached on every node
func TestPlacementFillsCluster(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	c := framework.StartCluster(t, framework.ClusterConfig{})
	registerNodes(t, c, 3)
	require.NoError(t, framework.DefaultWaiter().WaitForNodeCount(context.Background(), c.Client, 3))

	policy := types.DefaultPolicy()
	policy.MaxInstancesPerNode = 2
	_, err := c.Client.PutPolicy(policy)
	require.NoError(t, err)

	seen := make(map[string]bool)
	perNode := make(map[string]int)
	for i := 0; i < 6; i++ {
		decision, err := c.Client.Place("perform", false)
		require.NoError(t, err)

		addr := fmt.Sprintf("%s:%d", decision.NodeID, decision.Port)
		assert.False(t, seen[addr], "port reused: %s", addr)
		seen[addr] = true
		perNode[decision.NodeID]++
	}
	assert.Equal(t, map[string]int{"node-1": 2, "node-2": 2, "node-3": 2}, perNode)

	_, err = c.Client.Place("perform", false)
	assert.ErrorIs(t, err, scheduler.ErrNoCapacity)

	summary, err := c.Client.Summary()
	require.NoError(t, err)
	assert.Equal(t, 6, summary.TotalPlugInstances)
	assert.Equal(t, 100, summary.Utilization)
}

// TestDrainAndRecover lets the drain monitor remove a silent node and a fresh
// heartbeat bring it back
func TestDrainAndRecover(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	c := framework.StartCluster(t, framework.ClusterConfig{DrainInterval: 50 * time.Millisecond})
	registerNodes(t, c, 1)

	sub := c.Broker.Subscribe()
	defer c.Broker.Unsubscribe(sub)

	stale := time.Now().Add(-10 * time.Minute)
	_, err := c.Client.Heartbeat("node-1", types.NodeRuntime{LastHeartbeat: &stale})
	require.NoError(t, err)

	ctx := context.Background()
	waiter := framework.DefaultWaiter()
	require.NoError(t, waiter.WaitForNodeDrained(ctx, c.Client, "node-1"))

	var drained *events.Event
	require.NoError(t, waiter.WaitFor(ctx, func() bool {
		select {
		case ev := <-sub:
			if ev.Type == events.EventNodeDraining {
				drained = ev
				return true
			}
		default:
		}
		return false
	}, "node.draining event"))
	assert.Equal(t, "node-1", drained.Metadata["node_id"])

	_, err = c.Client.Place("", false)
	assert.ErrorIs(t, err, scheduler.ErrNoCapacity)

	_, err = c.Client.Heartbeat("node-1", types.NodeRuntime{MemoryUsedPercent: types.Ptr(30.0)})
	require.NoError(t, err)

	decision, err := c.Client.Place("", false)
	require.NoError(t, err)
	assert.Equal(t, "node-1", decision.NodeID)

	drain, err := c.Client.Drain("node-1")
	require.NoError(t, err)
	assert.False(t, drain.Drain)
}
