package convert

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

var (
	b64 = base64.StdEncoding

	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks struct tags of a request document. Failures wrap errs.ErrValidation.
func Validate(v any) error {
	validateOnce.Do(func() { validate = validator.New(validator.WithRequiredStructEnabled()) })
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

// --- server side ---

// ToEntry converts an entry with a grant into its API form. The access key is
// included when withAccess is set.
func ToEntry(ew model.EntryWithGrant, withAccess bool) Entry {
	out := Entry{
		ID:               ew.Entry.ID.String(),
		EncryptedContent: b64.EncodeToString(ew.Entry.EncryptedContent),
		IsPublic:         ew.Entry.IsPublic,
		EncryptionMetadata: EncryptionMetadata{
			EncryptedEntryKeyB64: b64.EncodeToString(ew.Grant.EncryptedEntryKey),
			KeyNonceB64:          b64.EncodeToString(ew.Grant.KeyNonce),
			ContentNonceB64:      b64.EncodeToString(ew.Entry.ContentNonce),
		},
		Author: Author{
			ID:        ew.Entry.AuthorID.String(),
			PublicKey: b64.EncodeToString(ew.AuthorPublicKey),
		},
		CreatedAt: ew.Entry.CreatedAt,
		UpdatedAt: ew.Entry.UpdatedAt,
	}
	if withAccess {
		out.AccessKey = &AccessKey{
			RecipientID:          ew.Grant.RecipientID.String(),
			EncryptedEntryKeyB64: out.EncryptionMetadata.EncryptedEntryKeyB64,
			KeyNonceB64:          out.EncryptionMetadata.KeyNonceB64,
		}
	}
	return out
}

// ToEntries converts a listing; the result is never nil.
func ToEntries(in []model.EntryWithGrant) SharedEntries {
	out := SharedEntries{Entries: make([]Entry, 0, len(in))}
	for _, ew := range in {
		out.Entries = append(out.Entries, ToEntry(ew, true))
	}
	return out
}

// FromPublishRequest validates and decodes a publish request for entry id.
func FromPublishRequest(id uuid.UUID, req PublishRequest) (model.PublishEntry, error) {
	if err := Validate(req); err != nil {
		return model.PublishEntry{}, err
	}
	content, err := b64.DecodeString(req.EncryptedContentB64)
	if err != nil {
		return model.PublishEntry{}, fmt.Errorf("%w: encryptedContentB64", errs.ErrValidation)
	}
	nonce, err := b64.DecodeString(req.ContentNonceB64)
	if err != nil {
		return model.PublishEntry{}, fmt.Errorf("%w: contentNonceB64", errs.ErrValidation)
	}
	pe := model.PublishEntry{
		ID:               id,
		EncryptedContent: content,
		ContentNonce:     nonce,
		IsPublic:         req.IsPublic,
		Grants:           make([]model.Grant, 0, len(req.Grants)),
	}
	for i, g := range req.Grants {
		rid, err := uuid.FromString(g.RecipientID)
		if err != nil {
			return model.PublishEntry{}, fmt.Errorf("%w: grant[%d] recipientId", errs.ErrValidation, i)
		}
		mg, err := fromGrantFields(id, rid, g.EncryptedEntryKeyB64, g.KeyNonceB64)
		if err != nil {
			return model.PublishEntry{}, fmt.Errorf("grant[%d]: %w", i, err)
		}
		pe.Grants = append(pe.Grants, mg)
	}
	return pe, nil
}

// FromPutGrantRequest validates and decodes a single grant.
func FromPutGrantRequest(entryID, recipientID uuid.UUID, req PutGrantRequest) (model.Grant, error) {
	if err := Validate(req); err != nil {
		return model.Grant{}, err
	}
	return fromGrantFields(entryID, recipientID, req.EncryptedEntryKeyB64, req.KeyNonceB64)
}

func fromGrantFields(entryID, recipientID uuid.UUID, keyB64, nonceB64 string) (model.Grant, error) {
	key, err := b64.DecodeString(keyB64)
	if err != nil {
		return model.Grant{}, fmt.Errorf("%w: encryptedEntryKeyB64", errs.ErrValidation)
	}
	nonce, err := b64.DecodeString(nonceB64)
	if err != nil {
		return model.Grant{}, fmt.Errorf("%w: keyNonceB64", errs.ErrValidation)
	}
	return model.Grant{EntryID: entryID, RecipientID: recipientID, EncryptedEntryKey: key, KeyNonce: nonce}, nil
}

// --- client side ---

// ToPublishRequest builds a publish request from locally sealed grants.
// recipientIDs[i] is the user that grants[i] was sealed for.
func ToPublishRequest(payload model.EncryptedEntryPayload, grants []model.EntryKeyGrant, recipientIDs []string, public bool) (PublishRequest, error) {
	if len(grants) != len(recipientIDs) {
		return PublishRequest{}, fmt.Errorf("%w: %d grants for %d recipients", errs.ErrValidation, len(grants), len(recipientIDs))
	}
	req := PublishRequest{
		EncryptedContentB64: payload.EncryptedContentB64,
		ContentNonceB64:     payload.ContentNonceB64,
		IsPublic:            public,
		Grants:              make([]Grant, 0, len(grants)),
	}
	for i, g := range grants {
		req.Grants = append(req.Grants, Grant{
			RecipientID:          recipientIDs[i],
			EncryptedEntryKeyB64: g.EncryptedEntryKeyB64,
			KeyNonceB64:          g.KeyNonceB64,
		})
	}
	return req, nil
}

// PayloadOf extracts the sealed content of an API entry.
func PayloadOf(e Entry) model.EncryptedEntryPayload {
	return model.EncryptedEntryPayload{
		EncryptedContentB64: e.EncryptedContent,
		ContentNonceB64:     e.EncryptionMetadata.ContentNonceB64,
	}
}

// KeyGrantOf extracts the grant of an API entry, preferring the access key.
func KeyGrantOf(e Entry) model.EntryKeyGrant {
	if e.AccessKey != nil {
		return model.EntryKeyGrant{
			EncryptedEntryKeyB64: e.AccessKey.EncryptedEntryKeyB64,
			KeyNonceB64:          e.AccessKey.KeyNonceB64,
		}
	}
	return model.EntryKeyGrant{
		EncryptedEntryKeyB64: e.EncryptionMetadata.EncryptedEntryKeyB64,
		KeyNonceB64:          e.EncryptionMetadata.KeyNonceB64,
	}
}

// AuthorKeyOf decodes the author's public key of an API entry.
func AuthorKeyOf(e Entry) ([model.PublicKeyLen]byte, error) {
	var pub [model.PublicKeyLen]byte
	b, err := b64.DecodeString(e.Author.PublicKey)
	if err != nil || len(b) != model.PublicKeyLen {
		return pub, fmt.Errorf("%w: author public key", errs.ErrValidation)
	}
	copy(pub[:], b)
	return pub, nil
}
