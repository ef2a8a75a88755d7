package remote

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/journal-keeper/internal/errs"
)

// TokenInfo is what a client can read from its bearer token without the signing key.
type TokenInfo struct {
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// InspectToken reads the subject and expiry of tok. The signature is not
// checked; the server does that on every request.
func InspectToken(tok string) (TokenInfo, error) {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(tok, &claims)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("%w: malformed token: %w", errs.ErrUnauthorized, err)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("%w: token subject is not a user id", errs.ErrUnauthorized)
	}
	info := TokenInfo{UserID: id.String()}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
