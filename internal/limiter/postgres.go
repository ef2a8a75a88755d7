package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with a fixed window and lockout.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxHits  int
	blockFor time.Duration
	now      func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxHits int, blockFor time.Duration) *PG {
	return NewPGWithQuerier(pool, window, maxHits, blockFor)
}

// NewPGWithQuerier constructs a limiter over any pgx querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxHits int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxHits: maxHits, blockFor: blockFor, now: time.Now}
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Allow reports whether a fetch is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, userID uuid.UUID, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM key_fetch_limiter WHERE user_id=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, userID, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if d := blockedUntil.Sub(l.now()); d > 0 {
			return false, d, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Hit counts one fetch. The counter restarts after a quiet period longer than
// the window.
func (l *PG) Hit(ctx context.Context, userID uuid.UUID, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO key_fetch_limiter (user_id, ip_hash, hit_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (user_id, ip_hash) DO UPDATE
SET
  hit_count = CASE WHEN EXCLUDED.updated_at - key_fetch_limiter.updated_at > $3::interval THEN 1 ELSE key_fetch_limiter.hit_count + 1 END,
  updated_at = now()
RETURNING hit_count`
	var hits int
	if err := l.pool.QueryRow(ctx, q, userID, ipHash, l.window).Scan(&hits); err != nil {
		return false, 0, err
	}
	if hits < l.maxHits {
		return false, 0, nil
	}
	const upd = `UPDATE key_fetch_limiter SET blocked_until=$3 WHERE user_id=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, userID, ipHash, l.now().Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}

// Forget removes every counter row of a user.
func (l *PG) Forget(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM key_fetch_limiter WHERE user_id=$1`
	_, err := l.pool.Exec(ctx, q, userID)
	return err
}
