/*
Package scheduler is Berth's placement engine.

Given a snapshot of worker nodes and a placement policy, the scheduler decides
which node receives a new plug instance and which port the instance uses. It
performs no I/O: node snapshots and policy are supplied by the caller on every
call, and the resulting decision is handed back for an external provisioning
layer to act on.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│        SelectNode(nodes, policy, workloadID)               │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. FilterEligible: healthy, below ceiling, memory < 90%   │
	│  2. resolveAffinity: first rule for workloadID, if its     │
	│     node is eligible                                        │
	│  3. selectByStrategy: least-loaded or round-robin          │
	│  4. AllocatePort: start + instances * 10                   │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┴────────────┐
	    ▼                         ▼
	PlacementDecision        nil (no capacity)

# Eligibility

A node is eligible when all of the following hold:

  - it is healthy, or never reported health
  - its instance count is below PlacementPolicy.MaxInstancesPerNode
  - its memory usage is below MemoryPressurePercent

Missing metrics count as healthy and idle so that newly joined or slow
reporting nodes are not excluded for lack of data.

# Affinity

An AffinityRule pins a workload identifier to a node. The pin applies only when
the node is eligible; otherwise the request falls through to the strategy and
lands elsewhere. Availability wins over the declared affinity.

# Strategies

Least-loaded scores each node as

	0.6 * memoryUsedPercent + 0.4 * (instances / maxInstancesPerNode * 100)

with 50% assumed for unknown memory, and picks the lowest score. Ties keep
input order.

Round-robin picks eligible[cursor % len(eligible)] and advances a cursor owned
by the Scheduler. The cursor only grows and is shared by all callers, so the
rotation is approximately fair even when the eligible set changes between
calls. Any strategy name other than least-loaded falls back to round-robin.

# Ports

AllocatePort returns PortRange.Start + instances * PortBlockSize. Ports are
not tracked between calls; refresh node snapshots after each placement.

# Draining and Summary

ShouldDrainNode flags nodes whose last heartbeat is older than DrainThreshold.
A node that never reported is not drained. Summarize aggregates node, instance,
capacity and memory figures for dashboards and the metrics collector.

# Usage

	sched := scheduler.NewScheduler()

	decision := sched.SelectNode(nodes, policy, "perform")
	if decision == nil {
		return scheduler.ErrNoCapacity
	}
	fmt.Printf("%s:%d (%s)\n", decision.Host, decision.Port, decision.Reason)

# Concurrency

SelectNode, ShouldDrainNode and Summarize read caller data only and may run
concurrently. The round-robin cursor is an atomic counter.
*/
package scheduler
