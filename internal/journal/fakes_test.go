package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/journal-keeper/internal/convert"
	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/storage/filestore"
)

var cheapKDF = model.KDFParams{Name: cc.KDFArgon2id, Time: 1, Memory: 64, Threads: 1}

type storedEntry struct {
	author  string
	content string
	nonce   string
	public  bool
	grants  map[string]convert.Grant
	updated time.Time
}

// fakeServer keeps entries the way the backend does; view binds it to a caller.
type fakeServer struct {
	mu      sync.Mutex
	pubs    map[string][model.PublicKeyLen]byte
	entries map[string]*storedEntry
}

func newFakeServer() *fakeServer {
	return &fakeServer{pubs: map[string][model.PublicKeyLen]byte{}, entries: map[string]*storedEntry{}}
}

type view struct {
	s    *fakeServer
	user string
}

var _ Backend = (*view)(nil)

func (v *view) PublicKey(_ context.Context, userID string) ([model.PublicKeyLen]byte, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.pubs[userID]
	if !ok {
		return p, errs.ErrNotFound
	}
	return p, nil
}

func (v *view) Publish(_ context.Context, id string, req convert.PublishRequest) error {
	if err := convert.Validate(req); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if e, ok := v.s.entries[id]; ok && e.author != v.user {
		return errs.ErrNotFound
	}
	e := &storedEntry{author: v.user, content: req.EncryptedContentB64, nonce: req.ContentNonceB64,
		public: req.IsPublic, grants: map[string]convert.Grant{}, updated: time.Now()}
	for _, g := range req.Grants {
		e.grants[g.RecipientID] = g
	}
	if _, ok := e.grants[v.user]; !ok {
		return errs.ErrValidation
	}
	v.s.entries[id] = e
	return nil
}

func (v *view) Unpublish(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.entries[id]
	if !ok || e.author != v.user {
		return errs.ErrNotFound
	}
	delete(v.s.entries, id)
	return nil
}

func (v *view) toDTO(id string, e *storedEntry, recipient string) (convert.Entry, bool) {
	g, ok := e.grants[recipient]
	if !ok {
		return convert.Entry{}, false
	}
	own := e.grants[e.author]
	pub := v.s.pubs[e.author]
	out := convert.Entry{
		ID:               id,
		EncryptedContent: e.content,
		IsPublic:         e.public,
		EncryptionMetadata: convert.EncryptionMetadata{
			EncryptedEntryKeyB64: own.EncryptedEntryKeyB64,
			KeyNonceB64:          own.KeyNonceB64,
			ContentNonceB64:      e.nonce,
		},
		Author:    convert.Author{ID: e.author, PublicKey: b64.EncodeToString(pub[:])},
		UpdatedAt: e.updated,
	}
	if recipient != "" {
		out.AccessKey = &convert.AccessKey{RecipientID: recipient, EncryptedEntryKeyB64: g.EncryptedEntryKeyB64, KeyNonceB64: g.KeyNonceB64}
	}
	return out, true
}

func (v *view) Entry(_ context.Context, id string) (*convert.Entry, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.entries[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out, ok := v.toDTO(id, e, v.user)
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &out, nil
}

func (v *view) PublicEntry(_ context.Context, id string) (*convert.Entry, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.entries[id]
	if !ok || !e.public {
		return nil, errs.ErrNotFound
	}
	out, _ := v.toDTO(id, e, e.author)
	out.AccessKey = nil
	return &out, nil
}

func (v *view) SharedWithMe(_ context.Context) ([]convert.Entry, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []convert.Entry{}
	for id, e := range v.s.entries {
		if e.author == v.user {
			continue
		}
		if dto, ok := v.toDTO(id, e, v.user); ok {
			out = append(out, dto)
		}
	}
	return out, nil
}

func (v *view) PutGrant(_ context.Context, entryID, recipientID string, req convert.PutGrantRequest) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.entries[entryID]
	if !ok || e.author != v.user {
		return errs.ErrNotFound
	}
	e.grants[recipientID] = convert.Grant{RecipientID: recipientID, EncryptedEntryKeyB64: req.EncryptedEntryKeyB64, KeyNonceB64: req.KeyNonceB64}
	return nil
}

func (v *view) RevokeGrant(_ context.Context, entryID, recipientID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.entries[entryID]
	if !ok || e.author != v.user {
		return errs.ErrNotFound
	}
	if _, ok := e.grants[recipientID]; !ok {
		return errs.ErrNotFound
	}
	delete(e.grants, recipientID)
	return nil
}

type user struct {
	id  string
	app *App
}

// newUser signs a fresh user up against srv and returns an unlocked App.
func newUser(t *testing.T, srv *fakeServer, opts ...Option) *user {
	t.Helper()
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4()).String()

	store := filestore.New(t.TempDir())
	m := e2e.NewManager(store, e2e.WithKDF(cheapKDF), e2e.WithLogger(zaptest.NewLogger(t)))
	kp, err := cc.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, m.Signup(ctx, id, kp, "pw-"+id))

	srv.mu.Lock()
	srv.pubs[id] = kp.PublicKey
	srv.mu.Unlock()

	opts = append([]Option{WithBackend(&view{s: srv, user: id}), WithLogger(zaptest.NewLogger(t))}, opts...)
	return &user{id: id, app: New(m, store, opts...)}
}
