package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/berth/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNodes  = []byte("nodes")
	bucketPolicy = []byte("policy")

	keyPolicy = []byte("active")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "berth.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodes, bucketPolicy} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Node operations
func (s *BoltStore) PutNode(node *types.WorkerNode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putNode(tx.Bucket(bucketNodes), node)
	})
}

func putNode(b *bolt.Bucket, node *types.WorkerNode) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return b.Put([]byte(node.ID), data)
}

func (s *BoltStore) GetNode(id string) (*types.WorkerNode, error) {
	var node types.WorkerNode
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) ListNodes() ([]*types.WorkerNode, error) {
	var nodes []*types.WorkerNode
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var node types.WorkerNode
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	return nodes, err
}

func (s *BoltStore) UpdateNode(id string, fn func(node *types.WorkerNode) error) (*types.WorkerNode, error) {
	var node types.WorkerNode
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		if err := json.Unmarshal(data, &node); err != nil {
			return err
		}
		if err := fn(&node); err != nil {
			return err
		}
		node.ID = id
		return putNode(b, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("node %s: %w", id, ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

// Policy operations
func (s *BoltStore) GetPolicy() (*types.PlacementPolicy, error) {
	var policy types.PlacementPolicy
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketPolicy).Get(keyPolicy)
		if data == nil {
			return fmt.Errorf("policy: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &policy)
	})
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *BoltStore) PutPolicy(policy *types.PlacementPolicy) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(policy)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPolicy).Put(keyPolicy, data)
	})
}
