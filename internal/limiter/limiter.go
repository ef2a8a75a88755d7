// Package limiter throttles how often a user's wrapped private key can be
// fetched, which bounds offline password guessing through the API.
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Limiter counts wrapped-key fetches per (user, client) and blocks bursts.
type Limiter interface {
	// Allow reports whether a fetch is currently allowed and an optional retry-after.
	Allow(ctx context.Context, userID uuid.UUID, ipHash []byte) (bool, time.Duration, error)
	// Hit records a fetch; it may place a temporary block.
	Hit(ctx context.Context, userID uuid.UUID, ipHash []byte) (bool, time.Duration, error)
	// Forget drops all counters of a user.
	Forget(ctx context.Context, userID uuid.UUID) error
}
