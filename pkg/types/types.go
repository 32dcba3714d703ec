package types

import (
	"time"
)

// WorkerNode represents one cluster member that can host plug instances
type WorkerNode struct {
	ID           string      `json:"id" yaml:"id"`
	Host         string      `json:"host" yaml:"host"`
	Role         NodeRole    `json:"role" yaml:"role"`
	Cores        int         `json:"cores" yaml:"cores"`
	MemoryGB     float64     `json:"memory_gb" yaml:"memoryGb"`
	MaxInstances int         `json:"max_instances" yaml:"maxInstances"`
	PortRange    PortRange   `json:"port_range" yaml:"portRange"`
	Services     []string    `json:"services,omitempty" yaml:"services,omitempty"`
	Tags         []string    `json:"tags,omitempty" yaml:"tags,omitempty"`
	Runtime      NodeRuntime `json:"runtime" yaml:"runtime,omitempty"`
}

// NodeRole defines the role of a node
type NodeRole string

const (
	NodeRolePrimary NodeRole = "primary"
	NodeRoleWorker  NodeRole = "worker"
)

// PortRange is a contiguous block of host ports, Start inclusive
type PortRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NodeRuntime is the last heartbeat-derived snapshot of a node.
// A nil field means the node never reported it, which is distinct from a
// reported zero.
type NodeRuntime struct {
	Instances         *int       `json:"instances,omitempty" yaml:"instances,omitempty"`
	MemoryUsedPercent *float64   `json:"memory_used_percent,omitempty" yaml:"memoryUsedPercent,omitempty"`
	LoadAverage       *float64   `json:"load_average,omitempty" yaml:"loadAverage,omitempty"`
	LastHeartbeat     *time.Time `json:"last_heartbeat,omitempty" yaml:"lastHeartbeat,omitempty"`
	Healthy           *bool      `json:"healthy,omitempty" yaml:"healthy,omitempty"`
}

// IsHealthy reports whether the node is healthy. Nodes that never reported
// health are assumed healthy.
func (n *WorkerNode) IsHealthy() bool {
	return n.Runtime.Healthy == nil || *n.Runtime.Healthy
}

// InstanceCount returns the reported instance count, or 0 when unknown
func (n *WorkerNode) InstanceCount() int {
	if n.Runtime.Instances == nil {
		return 0
	}
	return *n.Runtime.Instances
}

// MemoryPercentOr returns the reported memory usage, or def when unknown
func (n *WorkerNode) MemoryPercentOr(def float64) float64 {
	if n.Runtime.MemoryUsedPercent == nil {
		return def
	}
	return *n.Runtime.MemoryUsedPercent
}

// Clone returns a deep copy of the node
func (n *WorkerNode) Clone() *WorkerNode {
	if n == nil {
		return nil
	}
	c := *n
	if n.Services != nil {
		c.Services = append([]string(nil), n.Services...)
	}
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	c.Runtime = n.Runtime.Clone()
	return &c
}

// Clone returns a copy that shares no pointers with r
func (r NodeRuntime) Clone() NodeRuntime {
	var c NodeRuntime
	if r.Instances != nil {
		c.Instances = Ptr(*r.Instances)
	}
	if r.MemoryUsedPercent != nil {
		c.MemoryUsedPercent = Ptr(*r.MemoryUsedPercent)
	}
	if r.LoadAverage != nil {
		c.LoadAverage = Ptr(*r.LoadAverage)
	}
	if r.LastHeartbeat != nil {
		c.LastHeartbeat = Ptr(*r.LastHeartbeat)
	}
	if r.Healthy != nil {
		c.Healthy = Ptr(*r.Healthy)
	}
	return c
}

// Merge overlays the fields reported in update onto r
func (r NodeRuntime) Merge(update NodeRuntime) NodeRuntime {
	out := r.Clone()
	u := update.Clone()
	if u.Instances != nil {
		out.Instances = u.Instances
	}
	if u.MemoryUsedPercent != nil {
		out.MemoryUsedPercent = u.MemoryUsedPercent
	}
	if u.LoadAverage != nil {
		out.LoadAverage = u.LoadAverage
	}
	if u.LastHeartbeat != nil {
		out.LastHeartbeat = u.LastHeartbeat
	}
	if u.Healthy != nil {
		out.Healthy = u.Healthy
	}
	return out
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// Strategy names a node selection algorithm
type Strategy string

const (
	StrategyLeastLoaded Strategy = "least-loaded"
	StrategyRoundRobin  Strategy = "round-robin"

	// StrategyAffinity marks decisions made by an affinity pin
	StrategyAffinity Strategy = "affinity"
)

// AffinityRule pins a workload identifier to a node
type AffinityRule struct {
	Service string `json:"service" yaml:"service"`
	NodeID  string `json:"node_id" yaml:"nodeId"`
	Reason  string `json:"reason" yaml:"reason"`
}

// PlacementPolicy is the per-call configuration of the placement engine.
// FallbackStrategy, HealthCheckInterval and ReservedMemoryPercent are
// advisory: they are carried for operators and other consumers but do not
// change placement.
type PlacementPolicy struct {
	Strategy              Strategy       `json:"strategy" yaml:"strategy"`
	FallbackStrategy      Strategy       `json:"fallback_strategy" yaml:"fallbackStrategy"`
	HealthCheckInterval   time.Duration  `json:"health_check_interval" yaml:"healthCheckInterval"`
	MaxInstancesPerNode   int            `json:"max_instances_per_node" yaml:"maxInstancesPerNode"`
	ReservedMemoryPercent float64        `json:"reserved_memory_percent" yaml:"reservedMemoryPercent"`
	AffinityRules         []AffinityRule `json:"affinity_rules,omitempty" yaml:"affinityRules,omitempty"`
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() *PlacementPolicy {
	return &PlacementPolicy{
		Strategy:              StrategyLeastLoaded,
		FallbackStrategy:      StrategyRoundRobin,
		HealthCheckInterval:   30 * time.Second,
		MaxInstancesPerNode:   10,
		ReservedMemoryPercent: 10,
	}
}

// Clone returns a deep copy of the policy
func (p *PlacementPolicy) Clone() *PlacementPolicy {
	if p == nil {
		return nil
	}
	c := *p
	if p.AffinityRules != nil {
		c.AffinityRules = append([]AffinityRule(nil), p.AffinityRules...)
	}
	return &c
}

// PlacementDecision is the engine's answer to one placement request
type PlacementDecision struct {
	ID         string    `json:"id"`
	WorkloadID string    `json:"workload_id,omitempty"`
	NodeID     string    `json:"node_id"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Strategy   Strategy  `json:"strategy"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClusterSummary aggregates fleet-wide placement metrics
type ClusterSummary struct {
	TotalNodes         int `json:"total_nodes"`
	HealthyNodes       int `json:"healthy_nodes"`
	TotalPlugInstances int `json:"total_plug_instances"`
	TotalCapacity      int `json:"total_capacity"`
	Utilization        int `json:"utilization"`
	AvgMemoryPct       int `json:"avg_memory_pct"`
}

// TagDrained marks a node the drain monitor took out of rotation after its
// heartbeats stopped. The next heartbeat clears it.
const TagDrained = "berth.io/drained"

// HasTag reports whether the node carries tag
func (n *WorkerNode) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RemoveTag drops every occurrence of tag
func (n *WorkerNode) RemoveTag(tag string) {
	kept := n.Tags[:0]
	for _, t := range n.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	n.Tags = kept
}
