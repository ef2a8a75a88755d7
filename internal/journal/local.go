package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/passcache"
)

const localPrefix = "entry-"

type localBlob struct {
	ID   string `json:"id"`
	Blob string `json:"blob"`
}

// SaveLocal stores plaintext on this device encrypted under password and
// remembers the password for the session.
func (a *App) SaveLocal(ctx context.Context, id string, plaintext []byte, password string) error {
	if id == "" || password == "" {
		return fmt.Errorf("%w: local entry needs an id and a password", errs.ErrValidation)
	}
	blob, err := passcache.Encrypt(plaintext, password)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(localBlob{ID: id, Blob: blob})
	if err != nil {
		return err
	}
	if err := a.store.Put(ctx, localPrefix+id, raw); err != nil {
		return fmt.Errorf("%w: save local entry: %w", errs.ErrStorage, err)
	}
	a.Passwords.Set(id, password)
	return nil
}

// ReadLocal decrypts a local entry. An empty password uses the cached one.
func (a *App) ReadLocal(ctx context.Context, id, password string) ([]byte, error) {
	lb, err := a.loadLocal(ctx, id)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return a.Passwords.Decrypt(id, lb.Blob)
	}
	pt, err := passcache.Decrypt(lb.Blob, password)
	if err != nil {
		return nil, err
	}
	a.Passwords.Set(id, password)
	return pt, nil
}

// DeleteLocal removes a local entry and its cached password.
func (a *App) DeleteLocal(ctx context.Context, id string) error {
	a.Passwords.Forget(id)
	if err := a.store.Delete(ctx, localPrefix+id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete local entry: %w", errs.ErrStorage, err)
	}
	return nil
}

// LocalEntries lists the ids of local entries.
func (a *App) LocalEntries(ctx context.Context) ([]string, error) {
	names, err := a.store.List(ctx, localPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list local entries: %w", errs.ErrStorage, err)
	}
	ids := make([]string, 0, len(names))
	for _, n := range names {
		ids = append(ids, strings.TrimPrefix(n, localPrefix))
	}
	return ids, nil
}

// UnlockAll tries password against every local entry and caches it for
// those it opens.
func (a *App) UnlockAll(ctx context.Context, password string) (passcache.BatchResult, error) {
	ids, err := a.LocalEntries(ctx)
	if err != nil {
		return passcache.BatchResult{}, err
	}
	locked := make([]passcache.LockedEntry, 0, len(ids))
	for _, id := range ids {
		lb, err := a.loadLocal(ctx, id)
		if err != nil {
			a.log.Warn("local entry unreadable", zap.String("entry", id), zap.Error(err))
			continue
		}
		locked = append(locked, passcache.LockedEntry{ID: id, Blob: lb.Blob})
	}
	res := a.Passwords.BatchUnlock(password, locked)
	a.log.Info("local entries unlocked", zap.Int("unlocked", res.SuccessCount), zap.Int("total", len(ids)))
	return res, nil
}

func (a *App) loadLocal(ctx context.Context, id string) (*localBlob, error) {
	raw, err := a.store.Get(ctx, localPrefix+id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load local entry: %w", errs.ErrStorage, err)
	}
	var lb localBlob
	if err := json.Unmarshal(raw, &lb); err != nil {
		return nil, fmt.Errorf("%w: local entry %s: %w", errs.ErrStorage, id, err)
	}
	return &lb, nil
}
