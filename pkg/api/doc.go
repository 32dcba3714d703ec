/*
Package api serves Berth's HTTP/JSON API.

The server wraps the node registry and a single Scheduler. Placement requests
read a fresh snapshot of every node and the active policy, run the placement
engine, and count the new instance against the chosen node until its next
heartbeat reports the real figure. Reading, selecting and counting happen
under one mutex so back-to-back placements receive distinct ports.

# Routes

	POST   /v1/placements            place one plug instance
	GET    /v1/cluster/summary       fleet totals
	GET    /v1/nodes                 list nodes ordered by ID
	GET    /v1/nodes/{id}            fetch one node
	PUT    /v1/nodes/{id}            register or replace a node
	DELETE /v1/nodes/{id}            remove a node
	PUT    /v1/nodes/{id}/heartbeat  merge a runtime snapshot
	GET    /v1/nodes/{id}/drain      drain verdict for one node
	GET    /v1/policy                active placement policy
	PUT    /v1/policy                replace the placement policy
	GET    /v1/events                newline-delimited JSON event stream
	GET    /health, /ready, /metrics

A placement with no eligible node answers 503. Unknown nodes answer 404 and
malformed or invalid bodies answer 400. Every error body is an ErrorResponse.

# Heartbeats

A heartbeat carries any subset of NodeRuntime; omitted fields keep their
stored value and a missing last_heartbeat is stamped with the server clock.
A heartbeat from a node the drain monitor took out of rotation clears the
drained tag and the health mark the monitor set.

# Usage

	srv := api.NewServer(store, scheduler.NewScheduler(), broker, api.Options{})
	go func() {
		if err := srv.Start("127.0.0.1:7070"); err != nil {
			logger.Error().Err(err).Msg("API server failed")
		}
	}()
	defer srv.Stop(ctx)
*/
package api
