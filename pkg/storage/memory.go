package storage

import (
	"fmt"
	"sync"

	"github.com/cuemby/berth/pkg/types"
	"github.com/zhangyunhao116/skipmap"
)

// MemoryStore is a process-local Store backed by an ordered skip list.
// Reads are lock-free; UpdateNode serializes writers with a mutex.
type MemoryStore struct {
	nodes  *skipmap.OrderedMap[string, *types.WorkerNode]
	mu     sync.Mutex
	policy *types.PlacementPolicy
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: skipmap.New[string, *types.WorkerNode](),
	}
}

func (s *MemoryStore) PutNode(node *types.WorkerNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes.Store(node.ID, node.Clone())
	return nil
}

func (s *MemoryStore) GetNode(id string) (*types.WorkerNode, error) {
	node, ok := s.nodes.Load(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return node.Clone(), nil
}

func (s *MemoryStore) ListNodes() ([]*types.WorkerNode, error) {
	nodes := make([]*types.WorkerNode, 0, s.nodes.Len())
	s.nodes.Range(func(_ string, node *types.WorkerNode) bool {
		nodes = append(nodes, node.Clone())
		return true
	})
	return nodes, nil
}

func (s *MemoryStore) UpdateNode(id string, fn func(node *types.WorkerNode) error) (*types.WorkerNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.nodes.Load(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	node := stored.Clone()
	if err := fn(node); err != nil {
		return nil, err
	}
	node.ID = id
	s.nodes.Store(id, node)
	return node.Clone(), nil
}

func (s *MemoryStore) DeleteNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes.LoadAndDelete(id); !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MemoryStore) GetPolicy() (*types.PlacementPolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy == nil {
		return nil, fmt.Errorf("policy: %w", ErrNotFound)
	}
	return s.policy.Clone(), nil
}

func (s *MemoryStore) PutPolicy(policy *types.PlacementPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy.Clone()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
