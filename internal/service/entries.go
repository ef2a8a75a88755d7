package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/repository"
)

// EntryService defines operations over published ciphertext and its grants.
type EntryService interface {
	// Publish creates or replaces an entry with its full grant set.
	Publish(ctx context.Context, authorID uuid.UUID, pe model.PublishEntry) error
	// Unpublish removes an entry and its grants.
	Unpublish(ctx context.Context, authorID, entryID uuid.UUID) error
	// Get returns an entry with the grant addressed to userID.
	Get(ctx context.Context, userID, entryID uuid.UUID) (*model.EntryWithGrant, error)
	// GetPublic returns a public entry with the author's self grant.
	GetPublic(ctx context.Context, entryID uuid.UUID) (*model.EntryWithGrant, error)
	// SharedWithMe lists entries other authors granted to userID.
	SharedWithMe(ctx context.Context, userID uuid.UUID) ([]model.EntryWithGrant, error)
	// PutGrant adds or replaces a single grant.
	PutGrant(ctx context.Context, authorID uuid.UUID, g model.Grant) error
	// RevokeGrant removes a recipient's grant. The author's own grant cannot be revoked.
	RevokeGrant(ctx context.Context, authorID, entryID, recipientID uuid.UUID) error
	// PurgeGrants removes every grant addressed to or issued by userID.
	PurgeGrants(ctx context.Context, userID uuid.UUID) (int64, error)
}

type EntryServiceImpl struct {
	repo      repository.EntryRepository
	maxGrants int
}

// NewEntryService constructs EntryService with a per-entry grant limit.
func NewEntryService(repo repository.EntryRepository, maxGrants int) *EntryServiceImpl {
	if maxGrants <= 0 {
		maxGrants = 256
	}
	return &EntryServiceImpl{repo: repo, maxGrants: maxGrants}
}

// Publish validates input and delegates the atomic replace to the repository.
// Validation rules:
// - content is non-empty and at least one tag long
// - content nonce has AEAD nonce length
// - exactly one grant per recipient, including one for the author
// - every grant carries a box nonce and a sealed key
func (s *EntryServiceImpl) Publish(ctx context.Context, authorID uuid.UUID, pe model.PublishEntry) error {
	if authorID == uuid.Nil || pe.ID == uuid.Nil {
		return fmt.Errorf("%w: empty authorID/id", errs.ErrValidation)
	}
	if len(pe.EncryptedContent) < cc.TagLen {
		return fmt.Errorf("%w: content too short", errs.ErrValidation)
	}
	if len(pe.ContentNonce) != cc.NonceLen {
		return fmt.Errorf("%w: content nonce must be %d bytes", errs.ErrValidation, cc.NonceLen)
	}
	if len(pe.Grants) > s.maxGrants {
		return fmt.Errorf("%w: too many grants (%d > %d)", errs.ErrValidation, len(pe.Grants), s.maxGrants)
	}

	seen := make(map[uuid.UUID]struct{}, len(pe.Grants))
	for i := range pe.Grants {
		g := &pe.Grants[i]
		if g.RecipientID == uuid.Nil {
			return fmt.Errorf("%w: grant[%d] empty recipient", errs.ErrValidation, i)
		}
		if _, dup := seen[g.RecipientID]; dup {
			return fmt.Errorf("%w: grant[%d] duplicate recipient", errs.ErrValidation, i)
		}
		seen[g.RecipientID] = struct{}{}
		if err := validateGrant(g); err != nil {
			return fmt.Errorf("grant[%d]: %w", i, err)
		}
		g.EntryID = pe.ID
	}
	if _, ok := seen[authorID]; !ok {
		return fmt.Errorf("%w: missing author grant", errs.ErrValidation)
	}
	return s.repo.Publish(ctx, authorID, pe)
}

func validateGrant(g *model.Grant) error {
	if len(g.KeyNonce) != cc.BoxNonceLen {
		return fmt.Errorf("%w: key nonce must be %d bytes", errs.ErrValidation, cc.BoxNonceLen)
	}
	if len(g.EncryptedEntryKey) <= cc.KeyLen {
		return fmt.Errorf("%w: sealed key too short", errs.ErrValidation)
	}
	return nil
}

// Unpublish deletes an entry owned by authorID.
func (s *EntryServiceImpl) Unpublish(ctx context.Context, authorID, entryID uuid.UUID) error {
	if authorID == uuid.Nil || entryID == uuid.Nil {
		return fmt.Errorf("%w: empty authorID/id", errs.ErrValidation)
	}
	return s.repo.Unpublish(ctx, authorID, entryID)
}

// Get fetches an entry through the caller's grant.
func (s *EntryServiceImpl) Get(ctx context.Context, userID, entryID uuid.UUID) (*model.EntryWithGrant, error) {
	if userID == uuid.Nil || entryID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return s.repo.GetForRecipient(ctx, userID, entryID)
}

// GetPublic fetches a public entry; no caller identity is needed.
func (s *EntryServiceImpl) GetPublic(ctx context.Context, entryID uuid.UUID) (*model.EntryWithGrant, error) {
	if entryID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	return s.repo.GetPublic(ctx, entryID)
}

// SharedWithMe lists grants addressed to userID on other authors' entries.
func (s *EntryServiceImpl) SharedWithMe(ctx context.Context, userID uuid.UUID) ([]model.EntryWithGrant, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	out, err := s.repo.ListSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.EntryWithGrant{}
	}
	return out, nil
}

// PutGrant validates and stores one grant.
func (s *EntryServiceImpl) PutGrant(ctx context.Context, authorID uuid.UUID, g model.Grant) error {
	if authorID == uuid.Nil || g.EntryID == uuid.Nil || g.RecipientID == uuid.Nil {
		return fmt.Errorf("%w: empty authorID/entry/recipient", errs.ErrValidation)
	}
	if err := validateGrant(&g); err != nil {
		return err
	}
	return s.repo.PutGrant(ctx, authorID, g)
}

// RevokeGrant deletes a recipient's grant.
func (s *EntryServiceImpl) RevokeGrant(ctx context.Context, authorID, entryID, recipientID uuid.UUID) error {
	if authorID == uuid.Nil || entryID == uuid.Nil || recipientID == uuid.Nil {
		return fmt.Errorf("%w: empty authorID/entry/recipient", errs.ErrValidation)
	}
	if recipientID == authorID {
		return fmt.Errorf("%w: author grant cannot be revoked", errs.ErrValidation)
	}
	return s.repo.DeleteGrant(ctx, authorID, entryID, recipientID)
}

// PurgeGrants deletes all grants involving userID and reports how many were removed.
func (s *EntryServiceImpl) PurgeGrants(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.repo.DeleteUserGrants(ctx, userID)
}
