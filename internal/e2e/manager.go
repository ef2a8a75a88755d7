package e2e

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// State is the key-custody state of a Manager.
type State int

const (
	NoKeys State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case NoKeys:
		return "no_keys"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Setup tells the caller whether to offer signup or unlock.
type Setup int

const (
	SetupNew Setup = iota
	SetupExisting
)

// ConfirmReset must be passed to Reset verbatim.
const ConfirmReset = "DELETE ALL ENCRYPTION KEYS"

// Manager owns the single process-wide E2E session.
type Manager struct {
	store  BlobStore
	remote Remote
	log    *zap.Logger
	kdf    *model.KDFParams
	now    func() time.Time

	// mu serializes state transitions; it is held from the state check to the mutation.
	mu      sync.Mutex
	session model.E2ESession

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithRemote enables the cloud mirror of the wrapped key.
func WithRemote(r Remote) Option { return func(m *Manager) { m.remote = r } }

// WithLogger sets the logger. Only states and ids are logged.
func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = l } }

// WithKDF overrides the key-derivation parameters used for new wrapped keys.
// Parameters rejected by clientcrypto.ValidKDF make Signup fail with errs.ErrValidation.
func WithKDF(p model.KDFParams) Option { return func(m *Manager) { m.kdf = &p } }

// NewManager constructs a Manager in the state implied by store.
func NewManager(store BlobStore, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		log:       zap.NewNop(),
		now:       time.Now,
		observers: map[int]func(State){},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Subscribe registers fn for state changes and returns a cancel func.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

func (m *Manager) notify(s State) {
	m.obsMu.Lock()
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// HasStoredKeys reports whether a wrapped private key is persisted locally.
func (m *Manager) HasStoredKeys(ctx context.Context) (bool, error) {
	_, err := m.loadLocal(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// IsUnlocked reports whether the session holds a keypair.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsUnlocked
}

// CurrentSession returns a snapshot of the session. The keypair is a copy.
func (m *Manager) CurrentSession() model.E2ESession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s.UserKeyPair != nil {
		kp := *s.UserKeyPair
		s.UserKeyPair = &kp
	}
	return s
}

// State derives the current state from the session and the local store.
func (m *Manager) State(ctx context.Context) (State, error) {
	if m.IsUnlocked() {
		return Unlocked, nil
	}
	ok, err := m.HasStoredKeys(ctx)
	if err != nil {
		return NoKeys, err
	}
	if ok {
		return Locked, nil
	}
	return NoKeys, nil
}

// DetectSetup decides between first-time signup and unlocking existing keys.
// SetupNew is returned only when both stores positively report no key; a
// failed remote check answers SetupExisting.
func (m *Manager) DetectSetup(ctx context.Context, userID string) (Setup, error) {
	ok, err := m.HasStoredKeys(ctx)
	if err != nil {
		return SetupExisting, err
	}
	if ok {
		return SetupExisting, nil
	}
	if m.remote == nil {
		return SetupNew, nil
	}
	_, err = m.remote.FetchWrappedKey(ctx, userID)
	switch {
	case err == nil:
		return SetupExisting, nil
	case errors.Is(err, errs.ErrNotFound):
		return SetupNew, nil
	default:
		m.log.Warn("remote key check failed, assuming existing keys", zap.String("user", userID), zap.Error(err))
		return SetupExisting, nil
	}
}

// Signup wraps kp under password, persists it and unlocks the session.
// It fails with errs.ErrAlreadyExists if a wrapped key is already stored.
// If the local signup succeeded but the remote mirror failed, the session is
// unlocked and a *SyncError is returned.
func (m *Manager) Signup(ctx context.Context, userID string, kp *model.UserKeyPair, password string) error {
	if kp == nil || password == "" || userID == "" {
		return fmt.Errorf("%w: signup needs user, keypair and password", errs.ErrValidation)
	}

	m.mu.Lock()
	if _, err := m.loadLocal(ctx); err == nil {
		m.mu.Unlock()
		return errs.ErrAlreadyExists
	} else if !errors.Is(err, errs.ErrKeyNotFound) {
		m.mu.Unlock()
		return err
	}

	wk, err := wrapKeyPair(kp, password, m.kdf, m.now())
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("wrap private key: %w", err)
	}
	local := *wk
	local.UserID = userID
	if err := m.saveLocal(ctx, &local); err != nil {
		m.mu.Unlock()
		return err
	}
	m.setSessionLocked(userID, kp)
	m.mu.Unlock()

	m.log.Info("e2e signup", zap.String("user", userID))
	m.notify(Unlocked)

	if m.remote != nil {
		if err := m.remote.PutWrappedKey(ctx, userID, wk); err != nil {
			m.log.Warn("wrapped key not mirrored", zap.String("user", userID), zap.Error(err))
			return &SyncError{Err: err}
		}
	}
	return nil
}

// Unlock loads the local wrapped key and opens it with password.
// On failure the session stays as it was.
func (m *Manager) Unlock(ctx context.Context, password string) error {
	m.mu.Lock()
	wk, err := m.loadLocal(ctx)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	kp, err := unwrapKeyPair(wk, password)
	if err != nil {
		m.mu.Unlock()
		m.log.Info("e2e unlock rejected", zap.String("user", wk.UserID))
		return err
	}
	m.setSessionLocked(wk.UserID, kp)
	m.mu.Unlock()

	m.log.Info("e2e unlocked", zap.String("user", wk.UserID))
	m.notify(Unlocked)
	return nil
}

// RestoreFromCloud unlocks with the remote copy of the wrapped key and stores
// it locally. Any failure on the remote path falls back to a local Unlock; if
// that fails too, both errors are returned.
func (m *Manager) RestoreFromCloud(ctx context.Context, userID, password string) error {
	cloudErr := m.restoreFromCloud(ctx, userID, password)
	if cloudErr == nil {
		return nil
	}
	m.log.Info("cloud restore failed, trying local keys", zap.String("user", userID), zap.Error(cloudErr))
	if err := m.Unlock(ctx, password); err != nil {
		return errors.Join(err, cloudErr)
	}
	return nil
}

func (m *Manager) restoreFromCloud(ctx context.Context, userID, password string) error {
	if m.remote == nil {
		return errors.New("no remote configured")
	}
	wk, err := m.remote.FetchWrappedKey(ctx, userID)
	if err != nil {
		return err
	}
	kp, err := unwrapKeyPair(wk, password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	local := *wk
	local.UserID = userID
	if err := m.saveLocal(ctx, &local); err != nil {
		m.mu.Unlock()
		kp.Wipe()
		return err
	}
	m.setSessionLocked(userID, kp)
	m.mu.Unlock()

	m.log.Info("e2e restored from cloud", zap.String("user", userID))
	m.notify(Unlocked)
	return nil
}

// Logout clears the in-memory session. The persisted wrapped key is untouched.
func (m *Manager) Logout() {
	m.mu.Lock()
	was := m.session.IsUnlocked
	m.clearSessionLocked()
	m.mu.Unlock()
	if was {
		m.log.Info("e2e locked")
		m.notify(Locked)
	}
}

// Reset irrecoverably deletes the user's keys: every remote grant and the
// remote wrapped key first, then the local wrapped key and the session.
// confirm must equal ConfirmReset. userID names the account whose remote
// material is deleted; when empty, the session or the local key supplies it.
// With a remote configured and no known user, Reset fails and deletes nothing.
func (m *Manager) Reset(ctx context.Context, userID, confirm string) error {
	if confirm != ConfirmReset {
		return fmt.Errorf("%w: reset requires explicit confirmation", errs.ErrValidation)
	}

	m.mu.Lock()
	userID, err := m.resetLocked(ctx, userID)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.log.Warn("e2e keys reset", zap.String("user", userID))
	m.notify(NoKeys)
	return nil
}

func (m *Manager) resetLocked(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		userID = m.session.UserID
	}
	if wk, err := m.loadLocal(ctx); err == nil && userID == "" {
		userID = wk.UserID
	} else if err != nil && !errors.Is(err, errs.ErrKeyNotFound) {
		return userID, err
	}

	if m.remote != nil {
		if userID == "" {
			return "", fmt.Errorf("%w: reset needs the user id to delete remote key material", errs.ErrValidation)
		}
		if err := m.remote.DeleteKeyMaterial(ctx, userID); err != nil {
			return userID, fmt.Errorf("%w: delete remote key material: %w", errs.ErrStorage, err)
		}
	}
	if err := m.store.Delete(ctx, WrappedKeyBlob); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return userID, fmt.Errorf("%w: delete wrapped key: %w", errs.ErrStorage, err)
	}
	m.clearSessionLocked()
	return userID, nil
}

// keyPair returns a copy of the unlocked keypair or errs.ErrNotUnlocked.
func (m *Manager) keyPair() (*model.UserKeyPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.IsUnlocked || m.session.UserKeyPair == nil {
		return nil, errs.ErrNotUnlocked
	}
	kp := *m.session.UserKeyPair
	return &kp, nil
}

func (m *Manager) setSessionLocked(userID string, kp *model.UserKeyPair) {
	m.clearSessionLocked()
	cp := *kp
	m.session = model.E2ESession{IsUnlocked: true, UserKeyPair: &cp, UserID: userID}
}

func (m *Manager) clearSessionLocked() {
	m.session.UserKeyPair.Wipe()
	m.session = model.E2ESession{}
}

func (m *Manager) loadLocal(ctx context.Context) (*model.WrappedPrivateKey, error) {
	b, err := m.store.Get(ctx, WrappedKeyBlob)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: load wrapped key: %w", errs.ErrStorage, err)
	}
	return decodeWrapped(b)
}

func (m *Manager) saveLocal(ctx context.Context, wk *model.WrappedPrivateKey) error {
	b, err := encodeWrapped(wk)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, WrappedKeyBlob, b); err != nil {
		return fmt.Errorf("%w: save wrapped key: %w", errs.ErrStorage, err)
	}
	return nil
}
