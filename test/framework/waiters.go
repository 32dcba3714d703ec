package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/berth/pkg/client"
	"github.com/cuemby/berth/pkg/types"
)

// Waiter provides utilities for waiting on conditions with timeouts
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter with a 10s timeout and 50ms interval
func DefaultWaiter() *Waiter {
	return NewWaiter(10*time.Second, 50*time.Millisecond)
}

// WaitFor waits for a condition to become true
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := PollUntil(ctx, w.interval, condition); err != nil {
		return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
	}
	return nil
}

// WaitForNode waits until the node exists and satisfies cond
func (w *Waiter) WaitForNode(ctx context.Context, c *client.Client, id string, cond func(*types.WorkerNode) bool, description string) error {
	return w.WaitFor(ctx, func() bool {
		node, err := c.GetNode(id)
		if err != nil {
			return false
		}
		return cond(node)
	}, fmt.Sprintf("node %s %s", id, description))
}

// WaitForNodeDrained waits until the drain monitor has taken the node out of rotation
func (w *Waiter) WaitForNodeDrained(ctx context.Context, c *client.Client, id string) error {
	return w.WaitForNode(ctx, c, id, func(n *types.WorkerNode) bool {
		return n.HasTag(types.TagDrained) && !n.IsHealthy()
	}, "to be drained")
}

// WaitForNodeCount waits for a specific number of registered nodes
func (w *Waiter) WaitForNodeCount(ctx context.Context, c *client.Client, count int) error {
	return w.WaitFor(ctx, func() bool {
		nodes, err := c.ListNodes()
		if err != nil {
			return false
		}
		return len(nodes) == count
	}, fmt.Sprintf("cluster to have %d nodes", count))
}

// PollUntil polls a condition until it returns true or context is cancelled
func PollUntil(ctx context.Context, interval time.Duration, condition func() bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Check immediately
	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
