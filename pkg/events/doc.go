/*
Package events provides an in-memory event broker for Berth.

Components publish what they did: the API publishes placement.created and
placement.no_capacity for every placement request and node/policy changes,
and the drain monitor publishes node.draining when a node goes silent. The
daemon logs every event, and GET /v1/events streams them to operators.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:     events.EventNodeDraining,
		Message:  "node worker-2 silent for 6m0s",
		Metadata: map[string]string{"node_id": "worker-2"},
	})

Delivery is asynchronous and best effort. Publish is buffered (100 events) and
each subscriber has its own buffer (50 events); a slow subscriber drops events
rather than stalling publishers.
*/
package events
