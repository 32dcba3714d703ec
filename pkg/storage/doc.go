/*
Package storage provides the node registry that feeds the placement engine.

The placement engine never stores anything. The berth daemon, acting as its
caller, keeps the latest WorkerNode snapshots and the active PlacementPolicy
in a Store and hands a fresh copy to the scheduler on every request.

# Backends

	┌──────────────┬──────────────────────────────┬─────────────────────────┐
	│ Backend      │ Library                      │ Use                     │
	├──────────────┼──────────────────────────────┼─────────────────────────┤
	│ bolt         │ go.etcd.io/bbolt             │ single daemon, on disk  │
	│ memory       │ zhangyunhao116/skipmap       │ tests, ephemeral runs   │
	│ etcd         │ go.etcd.io/etcd/client/v3    │ several daemons sharing │
	│              │                              │ one registry            │
	└──────────────┴──────────────────────────────┴─────────────────────────┘

BoltStore keeps two buckets, nodes (keyed by node ID) and policy (single key),
in <dataDir>/berth.db. EtcdStore uses /berth/nodes/<id> and /berth/policy.
Values are JSON in both.

All backends return nodes ordered by ID, so round-robin and least-loaded tie
breaking see the same order regardless of backend.

# Atomic Updates

UpdateNode is the read-modify-write primitive used for heartbeats, instance
accounting after a placement, and drain marking:

	node, err := store.UpdateNode("worker-1", func(n *types.WorkerNode) error {
		n.Runtime = n.Runtime.Merge(heartbeat)
		return nil
	})

BoltStore runs fn inside one write transaction, MemoryStore under a mutex and
EtcdStore as a compare-and-swap on the key's mod revision, retried on
conflict.
*/
package storage
