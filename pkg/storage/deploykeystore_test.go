package storage

import (
	"testing"
	"time"

	"github.com/cloudide/orchestrator/pkg/types"
)

func TestDeployKeyStorePutGetDelete(t *testing.T) {
	store, err := NewDeployKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDeployKeyStore: %v", err)
	}
	defer store.Close()

	key := types.DeployKey{
		RepositoryID:  7,
		PublicKey:     "ssh-rsa AAAA...",
		EncryptedPriv: []byte{0x01, 0x02, 0x03},
		CreatedAt:     time.Now(),
	}

	if err := store.Put(key); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := store.Get(7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected deploy key to be found")
	}
	if got.PublicKey != key.PublicKey {
		t.Errorf("PublicKey = %q, want %q", got.PublicKey, key.PublicKey)
	}

	if err := store.Delete(7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err = store.Get(7)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if found {
		t.Error("expected deploy key to be gone after Delete")
	}
}

func TestDeployKeyStoreGetMissingReturnsNotFound(t *testing.T) {
	store, err := NewDeployKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDeployKeyStore: %v", err)
	}
	defer store.Close()

	_, found, err := store.Get(999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected not found for missing repository id")
	}
}
