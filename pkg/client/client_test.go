package client

import (
	"net/http/httptest"
	"testing"

	"github.com/cuemby/berth/pkg/api"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := api.NewServer(storage.NewMemoryStore(), scheduler.NewScheduler(), nil, api.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("127.0.0.1:7070/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:7070", c.baseURL)

	_, err = NewClient("")
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Place("perform", false)
	assert.ErrorIs(t, err, scheduler.ErrNoCapacity)

	_, err = c.GetNode("n1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	node := &types.WorkerNode{
		ID:        "n1",
		Host:      "10.0.0.1",
		Role:      types.NodeRoleWorker,
		PortRange: types.PortRange{Start: 9000, End: 9100},
	}
	_, err = c.PutNode(node)
	require.NoError(t, err)

	decision, err := c.Place("perform", false)
	require.NoError(t, err)
	assert.Equal(t, "n1", decision.NodeID)
	assert.Equal(t, 9000, decision.Port)

	got, err := c.Heartbeat("n1", types.NodeRuntime{MemoryUsedPercent: types.Ptr(20.0)})
	require.NoError(t, err)
	assert.Equal(t, 1, got.InstanceCount())

	drain, err := c.Drain("n1")
	require.NoError(t, err)
	assert.False(t, drain.Drain)

	summary, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalNodes)
	assert.Equal(t, 1, summary.TotalPlugInstances)

	policy := types.DefaultPolicy()
	policy.Strategy = types.StrategyRoundRobin
	_, err = c.PutPolicy(policy)
	require.NoError(t, err)
	stored, err := c.GetPolicy()
	require.NoError(t, err)
	assert.Equal(t, types.StrategyRoundRobin, stored.Strategy)

	nodes, err := c.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 1)

	require.NoError(t, c.RemoveNode("n1"))
	err = c.RemoveNode("n1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}
