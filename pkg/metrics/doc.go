/*
Package metrics provides Prometheus metrics and health reporting for Berth.

All metrics are registered with the default Prometheus registry at package
init and exposed by Handler on /metrics.

# Metric Families

Cluster gauges, refreshed by the Collector from the node registry:

  - berth_nodes_total, berth_nodes_healthy
  - berth_plug_instances_total, berth_cluster_capacity
  - berth_cluster_utilization_percent, berth_cluster_memory_used_percent

Placement, recorded by the API on every placement request:

  - berth_placements_total{strategy, outcome}: outcome is "placed" or
    "no_capacity"
  - berth_placement_latency_seconds

Drain monitor:

  - berth_nodes_draining
  - berth_drain_cycles_total, berth_drain_cycle_duration_seconds

API:

  - berth_api_requests_total{route, status}
  - berth_api_request_duration_seconds{route}

Route labels use the chi route pattern (for example /v1/nodes/{id}/heartbeat)
so node IDs never reach label values.

# Collector

The Collector runs Summarize over the registry on a ticker and writes the
result to the cluster gauges:

	collector := metrics.NewCollector(store, 15*time.Second)
	collector.Start()
	defer collector.Stop()

# Timing

	timer := metrics.NewTimer()
	decision := sched.SelectNode(nodes, policy, workloadID)
	timer.ObserveDuration(metrics.PlacementLatency)

# Health

Components report their state with UpdateComponent. /health reports every
component; /ready fails while a critical component (storage, api) is down.

	metrics.UpdateComponent(metrics.ComponentStorage, true, "")
*/
package metrics
