// Package biometric escrows the E2E unlock password behind a platform
// biometric credential.
//
// What is stored is the password, not the private key: a successful biometric
// assertion is as powerful as knowing the password.
package biometric

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// CredentialBlob is the local store name of the escrowed credential.
const CredentialBlob = "biometricCredential"

// DefaultTimeout bounds every platform prompt.
const DefaultTimeout = 60 * time.Second

var hkdfInfo = []byte("journal-keeper biometric password wrap v1")

// Platform is the OS biometric API. Secrets returned by Register and Assert
// must be identical for the same credential.
type Platform interface {
	// Available reports whether biometric hardware and enrollment are present.
	Available(ctx context.Context) (bool, error)
	// Register creates a credential and returns its id and secret material.
	Register(ctx context.Context) (credentialID string, secret []byte, err error)
	// Assert prompts the user and returns the secret of credentialID.
	Assert(ctx context.Context, credentialID string) (secret []byte, err error)
}

// Result is the outcome of Authenticate. Password is set only on success.
type Result struct {
	Success  bool
	Password string
	Err      error
}

// Wrapper binds the unlock password to a biometric credential.
type Wrapper struct {
	platform Platform
	store    e2e.BlobStore
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// New constructs a Wrapper. A nil platform behaves as unavailable.
func New(platform Platform, store e2e.BlobStore, timeout time.Duration, log *zap.Logger) *Wrapper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Wrapper{platform: platform, store: store, timeout: timeout, log: log, now: time.Now}
}

// IsAvailable probes the platform. Errors count as unavailable.
func (w *Wrapper) IsAvailable(ctx context.Context) bool {
	if w.platform == nil {
		return false
	}
	ok, err := callWithTimeout(ctx, w.timeout, func(ctx context.Context) (bool, error) {
		return w.platform.Available(ctx)
	})
	if err != nil {
		w.log.Debug("biometric probe failed", zap.Error(err))
		return false
	}
	return ok
}

// IsEnabled reports whether a credential is stored.
func (w *Wrapper) IsEnabled(ctx context.Context) (bool, error) {
	_, err := w.store.Get(ctx, CredentialBlob)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%w: load biometric credential: %w", errs.ErrStorage, err)
	}
}

// Enable registers a credential and stores password encrypted under a key
// derived from the credential's secret.
func (w *Wrapper) Enable(ctx context.Context, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", errs.ErrValidation)
	}
	if !w.IsAvailable(ctx) {
		return errs.ErrBiometricUnavailable
	}

	type reg struct {
		id     string
		secret []byte
	}
	r, err := callWithTimeout(ctx, w.timeout, func(ctx context.Context) (reg, error) {
		id, secret, err := w.platform.Register(ctx)
		return reg{id: id, secret: secret}, err
	})
	if err != nil {
		return err
	}
	defer wipe(r.secret)

	salt, err := cc.NewSalt()
	if err != nil {
		return err
	}
	nonce, err := cc.NewNonce()
	if err != nil {
		return err
	}
	key, err := wrapKey(r.secret, salt)
	if err != nil {
		return err
	}
	defer wipe(key)
	ct, err := cc.Seal(key, nonce, []byte(password))
	if err != nil {
		return err
	}

	b, err := json.Marshal(model.BiometricCredential{
		CredentialID:      r.id,
		EncryptedPassword: ct,
		Salt:              salt,
		Nonce:             nonce,
		Created:           w.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := w.store.Put(ctx, CredentialBlob, b); err != nil {
		return fmt.Errorf("%w: save biometric credential: %w", errs.ErrStorage, err)
	}
	w.log.Info("biometric unlock enabled")
	return nil
}

// Authenticate prompts for the biometric and returns the escrowed password.
// It never blocks past the timeout; every failure is a Result with Success
// false so the caller can fall back to asking for the password.
func (w *Wrapper) Authenticate(ctx context.Context) Result {
	cred, err := w.load(ctx)
	if err != nil {
		return Result{Err: err}
	}
	if w.platform == nil {
		return Result{Err: errs.ErrBiometricUnavailable}
	}
	secret, err := callWithTimeout(ctx, w.timeout, func(ctx context.Context) ([]byte, error) {
		return w.platform.Assert(ctx, cred.CredentialID)
	})
	if err != nil {
		w.log.Info("biometric prompt failed", zap.Error(err))
		return Result{Err: err}
	}
	defer wipe(secret)

	key, err := wrapKey(secret, cred.Salt)
	if err != nil {
		return Result{Err: err}
	}
	defer wipe(key)
	pt, err := cc.Open(key, cred.Nonce, cred.EncryptedPassword)
	if err != nil {
		return Result{Err: errs.ErrAuthentication}
	}
	return Result{Success: true, Password: string(pt)}
}

// Disable deletes the stored credential. The wrapped private key is untouched.
func (w *Wrapper) Disable(ctx context.Context) error {
	if err := w.store.Delete(ctx, CredentialBlob); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("%w: delete biometric credential: %w", errs.ErrStorage, err)
	}
	w.log.Info("biometric unlock disabled")
	return nil
}

func (w *Wrapper) load(ctx context.Context) (*model.BiometricCredential, error) {
	b, err := w.store.Get(ctx, CredentialBlob)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrBiometricUnavailable
		}
		return nil, fmt.Errorf("%w: load biometric credential: %w", errs.ErrStorage, err)
	}
	var cred model.BiometricCredential
	if err := json.Unmarshal(b, &cred); err != nil {
		return nil, fmt.Errorf("%w: biometric credential blob: %w", errs.ErrStorage, err)
	}
	return &cred, nil
}

func wrapKey(secret, salt []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errs.ErrBiometricUnavailable
	}
	key := make([]byte, cc.KeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, hkdfInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

// callWithTimeout runs fn with a deadline and gives up waiting when it passes,
// even if the platform ignores ctx.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type out struct {
		v   T
		err error
	}
	// Buffered so a platform call that ignores ctx still exits once it returns.
	ch := make(chan out, 1)
	go func() {
		v, err := fn(ctx)
		ch <- out{v: v, err: err}
	}()

	select {
	case o := <-ch:
		if errors.Is(o.err, context.DeadlineExceeded) {
			return o.v, errs.ErrBiometricTimeout
		}
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errs.ErrBiometricTimeout
		}
		return zero, ctx.Err()
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
