package scheduler

import "github.com/cuemby/berth/pkg/types"

// PortBlockSize is the number of ports reserved per instance: the service
// port followed by auxiliary ports such as metrics and debug.
const PortBlockSize = 10

// AllocatePort derives the base port for the next instance on node.
// Nothing is reserved; callers must refresh instance counts between
// placements or accept that provisioning detects collisions.
func AllocatePort(node *types.WorkerNode) int {
	return node.PortRange.Start + node.InstanceCount()*PortBlockSize
}
