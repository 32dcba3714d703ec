/*
Package log provides structured logging for Berth using zerolog.

A single package-level Logger is configured once by Init and shared by every
component. Until Init runs the logger discards everything, so library code and
tests can log freely without setup.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	schedLog := log.WithComponent("scheduler")
	schedLog.Debug().
		Str("node_id", decision.NodeID).
		Int("port", decision.Port).
		Msg("Placement decided")

Context helpers attach the fields used across Berth. WithComponent starts
from the global Logger; the others extend a component logger:

  - WithComponent: component=scheduler|api|reconciler|collector|serve
  - WithNodeID: node_id=<worker node>
  - WithWorkloadID: workload_id=<plug workload>

	logger := log.WithWorkloadID(schedLog, workloadID)

# Output

JSON (production):

	{"level":"info","component":"api","addr":":8080","time":"2026-10-19T10:30:00Z","message":"API server listening"}

Console (development):

	2026-10-19T10:30:00Z INF API server listening addr=:8080 component=api
*/
package log
