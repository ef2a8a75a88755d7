package postgres

import (
	"context"
	"errors"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// KeyRepo implements KeyRepository using PostgreSQL.
type KeyRepo struct{ db *DB }

// NewKeyRepo constructs a key repository.
func NewKeyRepo(db *DB) *KeyRepo { return &KeyRepo{db: db} }

// CreateIfAbsent inserts a key row; an existing row yields errs.ErrAlreadyExists.
func (r *KeyRepo) CreateIfAbsent(ctx context.Context, k *model.UserKey) error {
	const q = `
INSERT INTO user_keys (user_id, public_key, wrapped)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q, k.UserID, k.PublicKey, k.Wrapped)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrAlreadyExists
	}
	return nil
}

// Get selects the key row of a user.
func (r *KeyRepo) Get(ctx context.Context, userID uuid.UUID) (*model.UserKey, error) {
	const q = `
SELECT user_id, public_key, wrapped, created_at
FROM user_keys WHERE user_id=$1`
	var k model.UserKey
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&k.UserID, &k.PublicKey, &k.Wrapped, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

// PublicKey selects only the public key of a user.
func (r *KeyRepo) PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	const q = `SELECT public_key FROM user_keys WHERE user_id=$1`
	var pub []byte
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&pub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return pub, nil
}

// Delete removes the key row of a user.
func (r *KeyRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM user_keys WHERE user_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}
