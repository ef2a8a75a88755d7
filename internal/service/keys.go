package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/limiter"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/repository"
)

// KeyService defines custody operations over users' wrapped private keys.
type KeyService interface {
	// PutWrapped stores the wrapped key if the user has none yet.
	PutWrapped(ctx context.Context, userID uuid.UUID, wrapped []byte) error
	// GetWrapped returns the wrapped key, subject to fetch rate limiting by (user, ip).
	GetWrapped(ctx context.Context, userID uuid.UUID, ip string) ([]byte, error)
	// PublicKey returns a user's public key for grant creation.
	PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error)
	// DeleteKeyMaterial removes every grant involving the user and then the wrapped key.
	DeleteKeyMaterial(ctx context.Context, userID uuid.UUID) (int64, error)
}

type KeyServiceImpl struct {
	keys    repository.KeyRepository
	entries repository.EntryRepository
	lim     limiter.Limiter
	log     *zap.Logger
}

// NewKeyService constructs KeyService with required dependencies.
func NewKeyService(keys repository.KeyRepository, entries repository.EntryRepository, lim limiter.Limiter, log *zap.Logger) *KeyServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &KeyServiceImpl{keys: keys, entries: entries, lim: lim, log: log}
}

// PutWrapped validates the wrapped key document and stores it with its public key.
// The server never sees the password or the secret key.
func (s *KeyServiceImpl) PutWrapped(ctx context.Context, userID uuid.UUID, wrapped []byte) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	var wk model.WrappedPrivateKey
	if err := json.Unmarshal(wrapped, &wk); err != nil {
		return fmt.Errorf("%w: wrapped key is not JSON", errs.ErrValidation)
	}
	if wk.EncryptedSecretKeyB64 == "" || wk.SaltB64 == "" || wk.NonceB64 == "" {
		return fmt.Errorf("%w: wrapped key incomplete", errs.ErrValidation)
	}
	pub, err := base64.StdEncoding.DecodeString(wk.PublicKeyB64)
	if err != nil || len(pub) != model.PublicKeyLen {
		return fmt.Errorf("%w: bad public key", errs.ErrValidation)
	}
	if wk.KDF != nil {
		if err := clientcrypto.ValidKDF(*wk.KDF); err != nil {
			return err
		}
	}
	// The local-only owner field is never stored server-side.
	wk.UserID = ""
	doc, err := json.Marshal(wk)
	if err != nil {
		return err
	}
	return s.keys.CreateIfAbsent(ctx, &model.UserKey{UserID: userID, PublicKey: pub, Wrapped: doc})
}

// GetWrapped returns the stored wrapped key document.
func (s *KeyServiceImpl) GetWrapped(ctx context.Context, userID uuid.UUID, ip string) ([]byte, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, userID, ipHash)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}
	if blocked, _, err := s.lim.Hit(ctx, userID, ipHash); err != nil {
		s.log.Warn("key fetch limiter hit", zap.Error(err))
	} else if blocked {
		s.log.Info("key fetches blocked", zap.String("user", userID.String()))
	}

	k, err := s.keys.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return k.Wrapped, nil
}

// PublicKey returns the public key of userID.
func (s *KeyServiceImpl) PublicKey(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.keys.PublicKey(ctx, userID)
}

// DeleteKeyMaterial deletes grants before the key so no grant outlives it.
func (s *KeyServiceImpl) DeleteKeyMaterial(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	n, err := s.entries.DeleteUserGrants(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete grants: %w", err)
	}
	if err := s.keys.Delete(ctx, userID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return n, fmt.Errorf("delete wrapped key: %w", err)
	}
	if err := s.lim.Forget(ctx, userID); err != nil {
		s.log.Warn("limiter forget", zap.Error(err))
	}
	s.log.Info("key material deleted", zap.String("user", userID.String()), zap.Int64("grants", n))
	return n, nil
}
