package postgres

import (
	"context"
	"errors"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

const selectEntryWithGrant = `
SELECT e.id, e.author_id, e.encrypted_content, e.content_nonce, e.is_public, e.created_at, e.updated_at,
       g.recipient_id, g.encrypted_entry_key, g.key_nonce, g.created_at, k.public_key
FROM entries e
JOIN entry_grants g ON g.entry_id = e.id
JOIN user_keys k ON k.user_id = e.author_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntryWithGrant(s scanner) (*model.EntryWithGrant, error) {
	var ew model.EntryWithGrant
	e := &ew.Entry
	g := &ew.Grant
	if err := s.Scan(
		&e.ID, &e.AuthorID, &e.EncryptedContent, &e.ContentNonce, &e.IsPublic, &e.CreatedAt, &e.UpdatedAt,
		&g.RecipientID, &g.EncryptedEntryKey, &g.KeyNonce, &g.CreatedAt, &ew.AuthorPublicKey,
	); err != nil {
		return nil, err
	}
	g.EntryID = e.ID
	return &ew, nil
}

// Publish upserts the entry and replaces its grants in one transaction.
// An id owned by another author yields errs.ErrNotFound.
func (r *EntryRepo) Publish(ctx context.Context, authorID uuid.UUID, pe model.PublishEntry) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const upsert = `
INSERT INTO entries (id, author_id, encrypted_content, content_nonce, is_public)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET encrypted_content = EXCLUDED.encrypted_content,
    content_nonce = EXCLUDED.content_nonce,
    is_public = EXCLUDED.is_public,
    updated_at = now()
WHERE entries.author_id = EXCLUDED.author_id`
	const delGrants = `DELETE FROM entry_grants WHERE entry_id=$1`
	const ins = `
INSERT INTO entry_grants (entry_id, recipient_id, encrypted_entry_key, key_nonce)
VALUES ($1, $2, $3, $4)`

	tag, err := tx.Exec(ctx, upsert, pe.ID, authorID, pe.EncryptedContent, pe.ContentNonce, pe.IsPublic)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	if _, err = tx.Exec(ctx, delGrants, pe.ID); err != nil {
		return err
	}
	for _, g := range pe.Grants {
		if _, err = tx.Exec(ctx, ins, pe.ID, g.RecipientID, g.EncryptedEntryKey, g.KeyNonce); err != nil {
			if isUniqueViolation(err) {
				err = errs.ErrAlreadyExists
			}
			return err
		}
	}
	return nil
}

// Unpublish deletes an entry; grants cascade.
func (r *EntryRepo) Unpublish(ctx context.Context, authorID, entryID uuid.UUID) error {
	const q = `DELETE FROM entries WHERE id=$1 AND author_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, entryID, authorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetForRecipient loads an entry with the grant addressed to recipientID.
func (r *EntryRepo) GetForRecipient(ctx context.Context, recipientID, entryID uuid.UUID) (*model.EntryWithGrant, error) {
	const q = selectEntryWithGrant + `
WHERE e.id=$1 AND g.recipient_id=$2`
	ew, err := scanEntryWithGrant(r.db.Pool.QueryRow(ctx, q, entryID, recipientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return ew, nil
}

// GetPublic loads a public entry with the author's self grant.
func (r *EntryRepo) GetPublic(ctx context.Context, entryID uuid.UUID) (*model.EntryWithGrant, error) {
	const q = selectEntryWithGrant + `
WHERE e.id=$1 AND e.is_public AND g.recipient_id = e.author_id`
	ew, err := scanEntryWithGrant(r.db.Pool.QueryRow(ctx, q, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return ew, nil
}

// ListSharedWith returns other authors' entries granted to recipientID, newest first.
func (r *EntryRepo) ListSharedWith(ctx context.Context, recipientID uuid.UUID) ([]model.EntryWithGrant, error) {
	const q = selectEntryWithGrant + `
WHERE g.recipient_id=$1 AND e.author_id <> $1
ORDER BY e.updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EntryWithGrant
	for rows.Next() {
		ew, err := scanEntryWithGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ew)
	}
	return out, rows.Err()
}

// PutGrant upserts a grant if authorID owns the entry.
func (r *EntryRepo) PutGrant(ctx context.Context, authorID uuid.UUID, g model.Grant) error {
	const q = `
INSERT INTO entry_grants (entry_id, recipient_id, encrypted_entry_key, key_nonce)
SELECT e.id, $2, $3, $4 FROM entries e WHERE e.id=$1 AND e.author_id=$5
ON CONFLICT (entry_id, recipient_id) DO UPDATE
SET encrypted_entry_key = EXCLUDED.encrypted_entry_key,
    key_nonce = EXCLUDED.key_nonce,
    created_at = now()`
	tag, err := r.db.Pool.Exec(ctx, q, g.EntryID, g.RecipientID, g.EncryptedEntryKey, g.KeyNonce, authorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteGrant removes one grant on an entry owned by authorID.
func (r *EntryRepo) DeleteGrant(ctx context.Context, authorID, entryID, recipientID uuid.UUID) error {
	const q = `
DELETE FROM entry_grants g USING entries e
WHERE g.entry_id = e.id AND e.id=$1 AND e.author_id=$2 AND g.recipient_id=$3`
	tag, err := r.db.Pool.Exec(ctx, q, entryID, authorID, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteUserGrants removes grants addressed to userID and grants on entries userID authored.
func (r *EntryRepo) DeleteUserGrants(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `
DELETE FROM entry_grants
WHERE recipient_id=$1 OR entry_id IN (SELECT id FROM entries WHERE author_id=$1)`
	tag, err := r.db.Pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
