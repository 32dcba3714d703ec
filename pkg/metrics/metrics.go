package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Placement outcomes
const (
	OutcomePlaced     = "placed"
	OutcomeNoCapacity = "no_capacity"
)

var (
	// Cluster metrics, refreshed by the Collector
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_nodes_total",
			Help: "Total number of registered nodes",
		},
	)

	NodesHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_nodes_healthy",
			Help: "Number of nodes that are healthy or never reported health",
		},
	)

	PlugInstancesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_plug_instances_total",
			Help: "Plug instances running across the cluster",
		},
	)

	ClusterCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_cluster_capacity",
			Help: "Theoretical instance capacity (policy ceiling times node count)",
		},
	)

	ClusterUtilization = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_cluster_utilization_percent",
			Help: "Running instances as a percentage of capacity",
		},
	)

	ClusterMemoryUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_cluster_memory_used_percent",
			Help: "Average memory used across nodes",
		},
	)

	// Placement metrics
	PlacementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berth_placements_total",
			Help: "Placement requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	PlacementLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "berth_placement_latency_seconds",
			Help:    "Time taken to select a node in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// Drain metrics
	NodesDraining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "berth_nodes_draining",
			Help: "Nodes whose last heartbeat is older than the drain threshold",
		},
	)

	DrainCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "berth_drain_cycles_total",
			Help: "Completed drain monitor cycles",
		},
	)

	DrainCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "berth_drain_cycle_duration_seconds",
			Help:    "Duration of drain monitor cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "berth_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "berth_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(NodesHealthy)
	prometheus.MustRegister(PlugInstancesTotal)
	prometheus.MustRegister(ClusterCapacity)
	prometheus.MustRegister(ClusterUtilization)
	prometheus.MustRegister(ClusterMemoryUsed)
	prometheus.MustRegister(PlacementsTotal)
	prometheus.MustRegister(PlacementLatency)
	prometheus.MustRegister(NodesDraining)
	prometheus.MustRegister(DrainCyclesTotal)
	prometheus.MustRegister(DrainCycleDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation for a histogram
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds in o
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed seconds in the labelled histogram
func (t *Timer) ObserveDurationVec(vec *prometheus.HistogramVec, labels ...string) {
	vec.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
