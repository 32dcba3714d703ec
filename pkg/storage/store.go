package storage

import (
	"errors"

	"github.com/cuemby/berth/pkg/types"
)

// ErrNotFound is returned when a node or policy does not exist
var ErrNotFound = errors.New("not found")

// Store is the node registry: the caller-owned set of worker nodes and the
// active placement policy. ListNodes returns nodes ordered by ID. Returned
// values are copies; mutating them does not change the store.
type Store interface {
	// Nodes
	PutNode(node *types.WorkerNode) error
	GetNode(id string) (*types.WorkerNode, error)
	ListNodes() ([]*types.WorkerNode, error)
	DeleteNode(id string) error

	// UpdateNode applies fn to the stored node atomically. The node is
	// written back only if fn returns nil.
	UpdateNode(id string, fn func(node *types.WorkerNode) error) (*types.WorkerNode, error)

	// Policy
	GetPolicy() (*types.PlacementPolicy, error)
	PutPolicy(policy *types.PlacementPolicy) error

	// Utility
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendMemory Backend = "memory"
	BackendEtcd   Backend = "etcd"
)

// Config selects and configures a Store backend
type Config struct {
	Backend       Backend  `yaml:"backend"`
	DataDir       string   `yaml:"dataDir"`
	EtcdEndpoints []string `yaml:"etcdEndpoints"`
}

// Open creates the Store described by cfg
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendBolt, "":
		return NewBoltStore(cfg.DataDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendEtcd:
		return NewEtcdStore(cfg.EtcdEndpoints)
	default:
		return nil, errors.New("unknown storage backend: " + string(cfg.Backend))
	}
}

// PolicyOrDefault returns the stored policy, or types.DefaultPolicy() when none is stored
func PolicyOrDefault(s Store) (*types.PlacementPolicy, error) {
	policy, err := s.GetPolicy()
	if errors.Is(err, ErrNotFound) {
		return types.DefaultPolicy(), nil
	}
	return policy, err
}
