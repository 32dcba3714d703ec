package scheduler

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/berth/pkg/types"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNode(id string, instances int, mem float64) *types.WorkerNode {
	return &types.WorkerNode{
		ID:        id,
		Host:      id + ".local",
		Role:      types.NodeRoleWorker,
		PortRange: types.PortRange{Start: 8000, End: 8999},
		Runtime: types.NodeRuntime{
			Instances:         types.Ptr(instances),
			MemoryUsedPercent: types.Ptr(mem),
			Healthy:           types.Ptr(true),
		},
	}
}

func unhealthy(n *types.WorkerNode) *types.WorkerNode {
	n.Runtime.Healthy = types.Ptr(false)
	return n
}

func policyWith(strategy types.Strategy, rules ...types.AffinityRule) *types.PlacementPolicy {
	p := types.DefaultPolicy()
	p.Strategy = strategy
	p.AffinityRules = rules
	return p
}

// TestFilterEligible tests the health, capacity and memory filters
func TestFilterEligible(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []*types.WorkerNode
		expected []string
	}{
		{
			name:     "all eligible",
			nodes:    []*types.WorkerNode{testNode("n1", 0, 10), testNode("n2", 9, 89.9)},
			expected: []string{"n1", "n2"},
		},
		{
			name:     "unhealthy excluded",
			nodes:    []*types.WorkerNode{unhealthy(testNode("n1", 0, 10)), testNode("n2", 1, 10)},
			expected: []string{"n2"},
		},
		{
			name:     "at capacity excluded",
			nodes:    []*types.WorkerNode{testNode("n1", 10, 10), testNode("n2", 11, 10), testNode("n3", 3, 10)},
			expected: []string{"n3"},
		},
		{
			name:     "memory pressure excluded",
			nodes:    []*types.WorkerNode{testNode("n1", 0, 90), testNode("n2", 0, 95), testNode("n3", 0, 89)},
			expected: []string{"n3"},
		},
		{
			name:     "missing metrics are optimistic",
			nodes:    []*types.WorkerNode{{ID: "fresh", PortRange: types.PortRange{Start: 1, End: 2}}},
			expected: []string{"fresh"},
		},
		{
			name:     "nil entries skipped",
			nodes:    []*types.WorkerNode{nil, testNode("n1", 0, 0)},
			expected: []string{"n1"},
		},
		{
			name:     "empty node list",
			nodes:    []*types.WorkerNode{},
			expected: []string{},
		},
		{
			name:     "nil node list",
			nodes:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FilterEligible(tt.nodes, types.DefaultPolicy())
			ids := make([]string, 0, len(result))
			for _, n := range result {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestFilterEligibleZeroCeiling(t *testing.T) {
	policy := types.DefaultPolicy()
	policy.MaxInstancesPerNode = 0

	assert.Empty(t, FilterEligible([]*types.WorkerNode{testNode("n1", 0, 0)}, policy))
}

// TestLeastLoaded checks the weighted score from the design example
func TestLeastLoaded(t *testing.T) {
	a := testNode("A", 5, 80)
	b := testNode("B", 9, 20)
	policy := policyWith(types.StrategyLeastLoaded)

	assert.InDelta(t, 68.0, LoadScore(a, policy), 1e-9)
	assert.InDelta(t, 48.0, LoadScore(b, policy), 1e-9)

	decision := NewScheduler().SelectNode([]*types.WorkerNode{a, b}, policy, "")
	require.NotNil(t, decision)
	assert.Equal(t, "B", decision.NodeID)
	assert.Equal(t, types.StrategyLeastLoaded, decision.Strategy)
	assert.Equal(t, "Least loaded (score 48.0)", decision.Reason)
}

func TestLeastLoadedDefaultsAndTies(t *testing.T) {
	policy := policyWith(types.StrategyLeastLoaded)

	// Unknown memory scores as 50%: 30 vs 0.6*40 + 4 = 28
	unknownMem := &types.WorkerNode{ID: "unknown", PortRange: types.PortRange{Start: 1, End: 2}}
	known := testNode("known", 1, 40)
	assert.InDelta(t, 30.0, LoadScore(unknownMem, policy), 1e-9)
	decision := NewScheduler().SelectNode([]*types.WorkerNode{unknownMem, known}, policy, "")
	require.NotNil(t, decision)
	assert.Equal(t, "known", decision.NodeID)

	// Equal scores keep input order
	first := testNode("first", 2, 30)
	second := testNode("second", 2, 30)
	for i := 0; i < 5; i++ {
		decision = NewScheduler().SelectNode([]*types.WorkerNode{first, second}, policy, "")
		require.NotNil(t, decision)
		assert.Equal(t, "first", decision.NodeID)
	}
}

// TestRoundRobin checks that consecutive calls visit each node once before repeating
func TestRoundRobin(t *testing.T) {
	nodes := []*types.WorkerNode{testNode("n1", 0, 10), testNode("n2", 0, 10), testNode("n3", 0, 10)}
	policy := policyWith(types.StrategyRoundRobin)
	sched := NewScheduler()

	var visited []string
	for i := 0; i < 6; i++ {
		decision := sched.SelectNode(nodes, policy, "")
		require.NotNil(t, decision)
		assert.Equal(t, types.StrategyRoundRobin, decision.Strategy)
		visited = append(visited, decision.NodeID)
	}

	assert.Equal(t, []string{"n1", "n2", "n3", "n1", "n2", "n3"}, visited)
}

func TestRoundRobinCursorAdvancesWhenSetShrinks(t *testing.T) {
	sched := NewScheduler()
	policy := policyWith(types.StrategyRoundRobin)
	three := []*types.WorkerNode{testNode("n1", 0, 10), testNode("n2", 0, 10), testNode("n3", 0, 10)}

	first := sched.SelectNode(three, policy, "")
	require.NotNil(t, first)
	assert.Equal(t, "n1", first.NodeID)

	// cursor=1 against a single eligible node still lands on a valid index
	only := sched.SelectNode(three[2:], policy, "")
	require.NotNil(t, only)
	assert.Equal(t, "n3", only.NodeID)

	// cursor=2 against three nodes
	next := sched.SelectNode(three, policy, "")
	require.NotNil(t, next)
	assert.Equal(t, "n3", next.NodeID)
}

func TestUnknownStrategyFallsBackToRoundRobin(t *testing.T) {
	nodes := []*types.WorkerNode{testNode("n1", 0, 90-1), testNode("n2", 0, 1)}
	sched := NewScheduler()

	for _, strategy := range []types.Strategy{"random", "", "Least-Loaded"} {
		decision := sched.SelectNode(nodes, policyWith(strategy), "")
		require.NotNil(t, decision, "strategy %q", strategy)
		assert.Equal(t, types.StrategyRoundRobin, decision.Strategy)
	}
}

// TestAffinity tests pinning and the lenient fallback
func TestAffinity(t *testing.T) {
	rule := types.AffinityRule{Service: "perform", NodeID: "n2", Reason: "GPU host"}

	t.Run("pinned node eligible", func(t *testing.T) {
		// n2 is the most loaded node, so strategies alone would never pick it
		nodes := []*types.WorkerNode{testNode("n1", 0, 5), testNode("n2", 8, 85), testNode("n3", 0, 5)}
		for _, strategy := range []types.Strategy{types.StrategyLeastLoaded, types.StrategyRoundRobin, "bogus"} {
			decision := NewScheduler().SelectNode(nodes, policyWith(strategy, rule), "perform")
			require.NotNil(t, decision)
			assert.Equal(t, "n2", decision.NodeID)
			assert.Equal(t, types.StrategyAffinity, decision.Strategy)
			assert.Equal(t, "Affinity: GPU host", decision.Reason)
			assert.Equal(t, 8080, decision.Port)
		}
	})

	t.Run("pinned node unhealthy falls through", func(t *testing.T) {
		nodes := []*types.WorkerNode{testNode("n1", 0, 5), unhealthy(testNode("n2", 0, 5)), testNode("n3", 0, 5)}
		decision := NewScheduler().SelectNode(nodes, policyWith(types.StrategyLeastLoaded, rule), "perform")
		require.NotNil(t, decision)
		assert.NotEqual(t, "n2", decision.NodeID)
		assert.Equal(t, types.StrategyLeastLoaded, decision.Strategy)
	})

	t.Run("pinned node absent falls through", func(t *testing.T) {
		nodes := []*types.WorkerNode{testNode("n1", 0, 5)}
		decision := NewScheduler().SelectNode(nodes, policyWith(types.StrategyRoundRobin, rule), "perform")
		require.NotNil(t, decision)
		assert.Equal(t, "n1", decision.NodeID)
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		nodes := []*types.WorkerNode{testNode("n1", 0, 5), testNode("n2", 0, 5), testNode("n3", 0, 5)}
		second := types.AffinityRule{Service: "perform", NodeID: "n3", Reason: "later"}
		decision := NewScheduler().SelectNode(nodes, policyWith(types.StrategyRoundRobin, rule, second), "perform")
		require.NotNil(t, decision)
		assert.Equal(t, "n2", decision.NodeID)
	})

	t.Run("other workloads ignore the rule", func(t *testing.T) {
		nodes := []*types.WorkerNode{testNode("n1", 0, 5), testNode("n2", 0, 50)}
		decision := NewScheduler().SelectNode(nodes, policyWith(types.StrategyLeastLoaded, rule), "render")
		require.NotNil(t, decision)
		assert.Equal(t, "n1", decision.NodeID)
	})
}

func TestAllocatePort(t *testing.T) {
	node := testNode("n1", 3, 10)
	assert.Equal(t, 8030, AllocatePort(node))

	node.Runtime.Instances = nil
	assert.Equal(t, 8000, AllocatePort(node))
}

func TestShouldDrainNode(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	sched := NewScheduler()
	sched.now = func() time.Time { return now }

	tests := []struct {
		name      string
		heartbeat *time.Time
		expected  bool
	}{
		{name: "six minutes silent", heartbeat: types.Ptr(now.Add(-6 * time.Minute)), expected: true},
		{name: "one minute silent", heartbeat: types.Ptr(now.Add(-time.Minute)), expected: false},
		{name: "exactly at threshold", heartbeat: types.Ptr(now.Add(-DrainThreshold)), expected: false},
		{name: "never reported", heartbeat: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := testNode("n1", 0, 0)
			node.Runtime.LastHeartbeat = tt.heartbeat
			assert.Equal(t, tt.expected, sched.ShouldDrainNode(node))
		})
	}

	assert.False(t, ShouldDrainNodeAt(nil, now))
}

func TestSummarize(t *testing.T) {
	healthy := testNode("n1", 3, 40)
	down := unhealthy(testNode("n2", 0, 0))

	got := Summarize([]*types.WorkerNode{healthy, down}, types.DefaultPolicy())
	want := types.ClusterSummary{
		TotalNodes:         2,
		HealthyNodes:       1,
		TotalPlugInstances: 3,
		TotalCapacity:      20,
		Utilization:        15,
		AvgMemoryPct:       20,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeEmptyInputs(t *testing.T) {
	assert.Equal(t, types.ClusterSummary{}, Summarize(nil, types.DefaultPolicy()))

	zero := types.DefaultPolicy()
	zero.MaxInstancesPerNode = 0
	got := Summarize([]*types.WorkerNode{testNode("n1", 2, 33)}, zero)
	assert.Equal(t, 0, got.TotalCapacity)
	assert.Equal(t, 0, got.Utilization)
	assert.Equal(t, 33, got.AvgMemoryPct)

	// Unreported metrics count as zero load and healthy
	fresh := &types.WorkerNode{ID: "fresh"}
	got = NewScheduler().ClusterSummary([]*types.WorkerNode{fresh}, nil)
	assert.Equal(t, 1, got.HealthyNodes)
	assert.Equal(t, 0, got.AvgMemoryPct)
}

// TestSelectNodeLogsWorkload checks decision log lines carry the workload and component
func TestSelectNodeLogsWorkload(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler()
	s.logger = zerolog.New(&buf).Level(zerolog.DebugLevel).With().Str("component", "scheduler").Logger()

	decision := s.SelectNode([]*types.WorkerNode{testNode("a", 0, 10)}, nil, "perform")
	require.NotNil(t, decision)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scheduler", entry["component"])
	assert.Equal(t, "perform", entry["workload_id"])
	assert.Equal(t, "a", entry["node_id"])
	assert.Equal(t, decision.Reason, entry["message"])
}
