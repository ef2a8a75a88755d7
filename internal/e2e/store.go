// Package e2e holds the encryption session and custody of the user's keypair.
//
// A Manager moves between three states: NoKeys (nothing persisted), Locked
// (a wrapped private key is persisted, nothing in memory) and Unlocked (the
// keypair is held in memory for the lifetime of the process). Entry
// operations are valid only while Unlocked.
package e2e

import (
	"context"

	"github.com/and161185/journal-keeper/internal/model"
)

// Blob names in the local store.
const (
	WrappedKeyBlob = "wrappedPrivateKey"
)

// BlobStore is the platform key-value store. Get returns errs.ErrNotFound
// when name is absent.
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// Remote mirrors key material to the backend for cross-device restore.
type Remote interface {
	// FetchWrappedKey returns errs.ErrNotFound if the user has no remote key.
	FetchWrappedKey(ctx context.Context, userID string) (*model.WrappedPrivateKey, error)
	// PutWrappedKey stores the wrapped key if none is stored yet.
	PutWrappedKey(ctx context.Context, userID string, wk *model.WrappedPrivateKey) error
	// DeleteKeyMaterial removes the remote wrapped key and every grant addressed to or issued by the user.
	DeleteKeyMaterial(ctx context.Context, userID string) error
}

// SyncError reports that a local operation succeeded but mirroring to the
// remote did not.
type SyncError struct{ Err error }

func (e *SyncError) Error() string { return "remote key sync: " + e.Err.Error() }

func (e *SyncError) Unwrap() error { return e.Err }
