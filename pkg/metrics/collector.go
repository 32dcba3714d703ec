package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"github.com/rs/zerolog"
)

// Collector refreshes the cluster gauges from the node registry
type Collector struct {
	store    storage.Store
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		store:    store,
		interval: interval,
		logger:   log.WithComponent("collector"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Collect()
		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector and waits for it to exit
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// Collect runs one collection pass and returns the summary it exported
func (c *Collector) Collect() types.ClusterSummary {
	nodes, err := c.store.ListNodes()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to list nodes")
		return types.ClusterSummary{}
	}
	policy, err := storage.PolicyOrDefault(c.store)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load policy")
		return types.ClusterSummary{}
	}

	summary := scheduler.Summarize(nodes, policy)
	RecordSummary(summary)
	return summary
}

// RecordSummary sets the cluster gauges from summary
func RecordSummary(summary types.ClusterSummary) {
	NodesTotal.Set(float64(summary.TotalNodes))
	NodesHealthy.Set(float64(summary.HealthyNodes))
	PlugInstancesTotal.Set(float64(summary.TotalPlugInstances))
	ClusterCapacity.Set(float64(summary.TotalCapacity))
	ClusterUtilization.Set(float64(summary.Utilization))
	ClusterMemoryUsed.Set(float64(summary.AvgMemoryPct))
}
