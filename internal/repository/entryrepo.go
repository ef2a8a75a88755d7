package repository

import (
	"context"

	"github.com/and161185/journal-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// EntryRepository stores published ciphertext and the grants that open it.
type EntryRepository interface {
	// Publish creates or replaces an entry owned by authorID together with its full grant set.
	Publish(ctx context.Context, authorID uuid.UUID, e model.PublishEntry) error

	// Unpublish removes an entry and its grants.
	Unpublish(ctx context.Context, authorID, entryID uuid.UUID) error

	// GetForRecipient returns an entry with the grant addressed to recipientID.
	GetForRecipient(ctx context.Context, recipientID, entryID uuid.UUID) (*model.EntryWithGrant, error)

	// GetPublic returns a public entry with the author's own grant.
	GetPublic(ctx context.Context, entryID uuid.UUID) (*model.EntryWithGrant, error)

	// ListSharedWith returns entries from other authors that carry a grant for recipientID.
	ListSharedWith(ctx context.Context, recipientID uuid.UUID) ([]model.EntryWithGrant, error)

	// PutGrant adds or replaces one grant on an entry owned by authorID.
	PutGrant(ctx context.Context, authorID uuid.UUID, g model.Grant) error

	// DeleteGrant revokes one recipient's grant on an entry owned by authorID.
	DeleteGrant(ctx context.Context, authorID, entryID, recipientID uuid.UUID) error

	// DeleteUserGrants removes every grant addressed to userID or issued on userID's entries.
	DeleteUserGrants(ctx context.Context, userID uuid.UUID) (int64, error)
}
