// Package journal wires key custody, the backend and the share-link and
// local-password helpers into the operations a client exposes.
package journal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/biometric"
	"github.com/and161185/journal-keeper/internal/convert"
	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/passcache"
)

var b64 = base64.StdEncoding

// Backend is the entry and grant API of the server.
type Backend interface {
	PublicKey(ctx context.Context, userID string) ([model.PublicKeyLen]byte, error)
	Publish(ctx context.Context, id string, req convert.PublishRequest) error
	Unpublish(ctx context.Context, id string) error
	Entry(ctx context.Context, id string) (*convert.Entry, error)
	PublicEntry(ctx context.Context, id string) (*convert.Entry, error)
	SharedWithMe(ctx context.Context) ([]convert.Entry, error)
	PutGrant(ctx context.Context, entryID, recipientID string, req convert.PutGrantRequest) error
	RevokeGrant(ctx context.Context, entryID, recipientID string) error
}

// Store is a BlobStore that can enumerate blobs by prefix.
type Store interface {
	e2e.BlobStore
	List(ctx context.Context, prefix string) ([]string, error)
}

// App is the per-process client context.
type App struct {
	Keys      *e2e.Manager
	Biometric *biometric.Wrapper
	Passwords *passcache.Cache

	backend   Backend
	store     Store
	shareBase string
	log       *zap.Logger
}

// Option configures an App.
type Option func(*App)

// WithBackend enables the entry and sharing operations.
func WithBackend(b Backend) Option { return func(a *App) { a.backend = b } }

// WithBiometric enables biometric unlock.
func WithBiometric(w *biometric.Wrapper) Option { return func(a *App) { a.Biometric = w } }

// WithShareBase sets the URL share links are built on.
func WithShareBase(u string) Option { return func(a *App) { a.shareBase = u } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *App) { a.log = l } }

// New constructs an App around keys. store holds local password-protected entries.
func New(keys *e2e.Manager, store Store, opts ...Option) *App {
	a := &App{
		Keys:      keys,
		Passwords: passcache.NewCache(),
		store:     store,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *App) needBackend() error {
	if a.backend == nil {
		return fmt.Errorf("%w: no backend configured", errs.ErrValidation)
	}
	return nil
}

// UnlockWithBiometric unlocks with the escrowed password. When biometrics are
// off or the prompt fails, fallback is asked for the password instead.
func (a *App) UnlockWithBiometric(ctx context.Context, fallback func() (string, error)) error {
	if a.Biometric != nil {
		on, err := a.Biometric.IsEnabled(ctx)
		if err != nil {
			a.log.Warn("biometric state unreadable", zap.Error(err))
		}
		if on {
			res := a.Biometric.Authenticate(ctx)
			if res.Success {
				err := a.Keys.Unlock(ctx, res.Password)
				if err == nil {
					return nil
				}
				if !errors.Is(err, errs.ErrAuthentication) {
					return err
				}
				a.log.Warn("escrowed password rejected, disabling biometric unlock")
				if err := a.Biometric.Disable(ctx); err != nil {
					a.log.Warn("disable biometric", zap.Error(err))
				}
			} else {
				a.log.Info("biometric unlock failed", zap.Error(res.Err))
			}
		}
	}
	if fallback == nil {
		return errs.ErrBiometricUnavailable
	}
	pw, err := fallback()
	if err != nil {
		return err
	}
	return a.Keys.Unlock(ctx, pw)
}

// EnableBiometric escrows password after checking it opens the stored key.
func (a *App) EnableBiometric(ctx context.Context, password string) error {
	if a.Biometric == nil {
		return errs.ErrBiometricUnavailable
	}
	if err := a.Keys.Unlock(ctx, password); err != nil {
		return err
	}
	return a.Biometric.Enable(ctx, password)
}

// Lock drops the keypair and every cached local password.
func (a *App) Lock() {
	a.Keys.Logout()
	a.Passwords.Clear()
}

// Reset deletes all key material of userID and turns biometric unlock off.
func (a *App) Reset(ctx context.Context, userID, confirm string) error {
	if err := a.Keys.Reset(ctx, userID, confirm); err != nil {
		return err
	}
	a.Passwords.Clear()
	if a.Biometric != nil {
		if err := a.Biometric.Disable(ctx); err != nil {
			a.log.Warn("disable biometric after reset", zap.Error(err))
		}
	}
	return nil
}

// NewEntryID returns a fresh entry id.
func NewEntryID() string {
	return uuid.Must(uuid.NewV4()).String()
}
