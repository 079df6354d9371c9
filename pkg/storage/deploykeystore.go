// Package storage implements the local bbolt store holding C5's encrypted
// deploy-key material, the only copy of it — repurposed from the
// teacher's Raft log/stable store into a single small key-value bucket.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cloudide/orchestrator/pkg/types"
)

var bucketDeployKeys = []byte("deploy_keys")

// DeployKeyStore persists types.DeployKey records keyed by repository id.
// Private key material is stored exactly as handed to Put — callers must
// encrypt it first (see pkg/security.SecretsManager); this store has no
// knowledge of the encryption key and performs no cryptography itself.
type DeployKeyStore struct {
	db *bolt.DB
}

// NewDeployKeyStore opens (creating if absent) the bbolt file under
// dataDir.
func NewDeployKeyStore(dataDir string) (*DeployKeyStore, error) {
	dbPath := filepath.Join(dataDir, "deploykeys.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening deploy key store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDeployKeys)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing deploy key bucket: %w", err)
	}

	return &DeployKeyStore{db: db}, nil
}

// Close closes the underlying database.
func (s *DeployKeyStore) Close() error {
	return s.db.Close()
}

// Put upserts a deploy key record for repoID.
func (s *DeployKeyStore) Put(key types.DeployKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployKeys)
		data, err := json.Marshal(key)
		if err != nil {
			return fmt.Errorf("marshaling deploy key: %w", err)
		}
		return b.Put(repoKey(key.RepositoryID), data)
	})
}

// Get retrieves the deploy key for repoID, or (zero, false) if absent.
func (s *DeployKeyStore) Get(repoID int64) (types.DeployKey, bool, error) {
	var key types.DeployKey
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDeployKeys)
		data := b.Get(repoKey(repoID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &key)
	})
	return key, found, err
}

// Delete removes the deploy key for repoID, if one exists.
func (s *DeployKeyStore) Delete(repoID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeployKeys).Delete(repoKey(repoID))
	})
}

func repoKey(repoID int64) []byte {
	return []byte(fmt.Sprintf("repo_%d", repoID))
}
