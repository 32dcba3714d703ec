package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/berth/pkg/types"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key layout in etcd
const (
	NodeKeyPrefix = "/berth/nodes/"
	PolicyKey     = "/berth/policy"
)

const (
	etcdDialTimeout    = 5 * time.Second
	etcdRequestTimeout = 5 * time.Second
	etcdUpdateRetries  = 5
)

var errConflict = errors.New("concurrent node update")

// EtcdStore implements Store on an etcd cluster so several berth processes
// can share one node registry
type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore connects to the given etcd endpoints
func NewEtcdStore(endpoints []string) (*EtcdStore, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("etcd storage requires at least one endpoint")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: etcdDialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &EtcdStore{client: cli}, nil
}

func (e *EtcdStore) Close() error {
	return e.client.Close()
}

func (e *EtcdStore) PutNode(node *types.WorkerNode) error {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	return e.putValue(ctx, NodeKeyPrefix+node.ID, node)
}

func (e *EtcdStore) GetNode(id string) (*types.WorkerNode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()

	node, _, err := e.getNode(ctx, id)
	return node, err
}

func (e *EtcdStore) getNode(ctx context.Context, id string) (*types.WorkerNode, int64, error) {
	resp, err := e.client.Get(ctx, NodeKeyPrefix+id)
	if err != nil {
		return nil, 0, err
	}
	if len(resp.Kvs) == 0 {
		return nil, 0, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	var node types.WorkerNode
	if err := json.Unmarshal(resp.Kvs[0].Value, &node); err != nil {
		return nil, 0, err
	}
	return &node, resp.Kvs[0].ModRevision, nil
}

// ListNodes relies on etcd returning prefix ranges in key order
func (e *EtcdStore) ListNodes() ([]*types.WorkerNode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()

	resp, err := e.client.Get(ctx, NodeKeyPrefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}

	nodes := make([]*types.WorkerNode, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var node types.WorkerNode
		if err := json.Unmarshal(kv.Value, &node); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", kv.Key, err)
		}
		nodes = append(nodes, &node)
	}
	return nodes, nil
}

// UpdateNode is an optimistic read-modify-write guarded by the key's mod revision
func (e *EtcdStore) UpdateNode(id string, fn func(node *types.WorkerNode) error) (*types.WorkerNode, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()

	key := NodeKeyPrefix + id
	for attempt := 0; attempt < etcdUpdateRetries; attempt++ {
		node, rev, err := e.getNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(node); err != nil {
			return nil, err
		}
		node.ID = id

		data, err := json.Marshal(node)
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", rev)).
			Then(clientv3.OpPut(key, string(data))).
			Commit()
		if err != nil {
			return nil, err
		}
		if resp.Succeeded {
			return node, nil
		}
	}
	return nil, fmt.Errorf("node %s: %w", id, errConflict)
}

func (e *EtcdStore) DeleteNode(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()

	resp, err := e.client.Delete(ctx, NodeKeyPrefix+id)
	if err != nil {
		return err
	}
	if resp.Deleted == 0 {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return nil
}

func (e *EtcdStore) GetPolicy() (*types.PlacementPolicy, error) {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()

	resp, err := e.client.Get(ctx, PolicyKey)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("policy: %w", ErrNotFound)
	}
	var policy types.PlacementPolicy
	if err := json.Unmarshal(resp.Kvs[0].Value, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (e *EtcdStore) PutPolicy(policy *types.PlacementPolicy) error {
	ctx, cancel := context.WithTimeout(context.Background(), etcdRequestTimeout)
	defer cancel()
	return e.putValue(ctx, PolicyKey, policy)
}

// putValue JSON-encodes val and stores it under key
func (e *EtcdStore) putValue(ctx context.Context, key string, val interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, key, string(data))
	return err
}
