// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/journal-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// KeyRepository stores each user's wrapped private key and public key.
type KeyRepository interface {
	// CreateIfAbsent stores k unless the user already has a key (errs.ErrAlreadyExists).
	CreateIfAbsent(ctx context.Context, k *model.UserKey) error
	// Get loads the key record for a user.
	Get(ctx context.Context, userID uuid.UUID) (*model.UserKey, error)
	// PublicKey returns only the public half.
	PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error)
	// Delete removes the key record; a missing record is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error
}
