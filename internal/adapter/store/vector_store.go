package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"pagectx/internal/domain"
)

var (
	bucketVectors = []byte("vectors")
)

// BoltEmbeddingStore persists embedding vectors in a BoltDB file so that
// repeated runs over the same text skip the provider.
type BoltEmbeddingStore struct {
	db *bbolt.DB
}

type storedVector struct {
	Vector domain.Vector `json:"v"`
}

// NewBoltEmbeddingStore opens (or creates) the store at path.
func NewBoltEmbeddingStore(path string) (*BoltEmbeddingStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	return &BoltEmbeddingStore{db: db}, nil
}

// Get returns the vector stored under key. Corrupted entries read as misses.
func (s *BoltEmbeddingStore) Get(key string) (domain.Vector, bool, error) {
	var vec domain.Vector
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get([]byte(key))
		if data == nil {
			return nil
		}
		var stored storedVector
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil
		}
		vec = stored.Vector
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return vec, found, nil
}

// Put stores vector under key.
func (s *BoltEmbeddingStore) Put(key string, vector domain.Vector) error {
	data, err := json.Marshal(storedVector{Vector: vector})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Put([]byte(key), data)
	})
}

// Count returns the number of stored vectors.
func (s *BoltEmbeddingStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every stored vector.
func (s *BoltEmbeddingStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketVectors); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketVectors)
		return err
	})
}

func (s *BoltEmbeddingStore) Close() error {
	return s.db.Close()
}
