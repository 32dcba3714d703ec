package types

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	// ErrInvalidNode is wrapped by every node validation failure
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidPolicy is wrapped by every policy validation failure
	ErrInvalidPolicy = errors.New("invalid placement policy")
)

// Validate checks the node's static invariants and the sign of any reported
// runtime metric. All violations are returned together.
func (n *WorkerNode) Validate() error {
	var err error
	if n.ID == "" {
		err = multierr.Append(err, fmt.Errorf("%w: id is required", ErrInvalidNode))
	}
	switch n.Role {
	case NodeRolePrimary, NodeRoleWorker:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown role %q", ErrInvalidNode, n.Role))
	}
	if n.PortRange.Start >= n.PortRange.End {
		err = multierr.Append(err, fmt.Errorf("%w: port range start %d must be below end %d",
			ErrInvalidNode, n.PortRange.Start, n.PortRange.End))
	}
	if n.Cores < 0 || n.MemoryGB < 0 || n.MaxInstances < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: capacity must be non-negative", ErrInvalidNode))
	}
	return multierr.Append(err, n.Runtime.Validate())
}

// Validate checks that every reported runtime metric is non-negative
func (r NodeRuntime) Validate() error {
	var err error
	if r.Instances != nil && *r.Instances < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: instances must be non-negative", ErrInvalidNode))
	}
	if r.MemoryUsedPercent != nil && *r.MemoryUsedPercent < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: memory used percent must be non-negative", ErrInvalidNode))
	}
	if r.LoadAverage != nil && *r.LoadAverage < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: load average must be non-negative", ErrInvalidNode))
	}
	return err
}

// Validate rejects negative ceilings and incomplete affinity rules. An
// unknown strategy is not an error: the scheduler falls back to round-robin.
func (p *PlacementPolicy) Validate() error {
	var err error
	if p.MaxInstancesPerNode < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max instances per node must be non-negative", ErrInvalidPolicy))
	}
	if p.ReservedMemoryPercent < 0 || p.ReservedMemoryPercent > 100 {
		err = multierr.Append(err, fmt.Errorf("%w: reserved memory percent must be within 0-100", ErrInvalidPolicy))
	}
	if p.HealthCheckInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: health check interval must be non-negative", ErrInvalidPolicy))
	}
	for i, rule := range p.AffinityRules {
		if rule.Service == "" || rule.NodeID == "" {
			err = multierr.Append(err, fmt.Errorf("%w: affinity rule %d needs service and node id", ErrInvalidPolicy, i))
		}
	}
	return err
}

// KnownStrategy reports whether s names an implemented selection algorithm
func KnownStrategy(s Strategy) bool {
	return s == StrategyLeastLoaded || s == StrategyRoundRobin
}
