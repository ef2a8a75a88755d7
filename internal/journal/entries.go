package journal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/convert"
	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
	"github.com/and161185/journal-keeper/internal/sharelink"
)

// Draft is an entry to publish.
type Draft struct {
	ID         string // empty publishes a new entry
	Title      string
	Content    string
	Recipients []string // user ids besides the author
	Public     bool
}

// SharedEntry is one decrypted item of SharedWithMe. Err is set, and
// Plaintext nil, when the entry could not be opened.
type SharedEntry struct {
	ID        string
	AuthorID  string
	Plaintext *model.EntryPlaintext
	Err       error
}

// Publish seals d for the author and every recipient and uploads it with its
// full grant set. It returns the entry id.
func (a *App) Publish(ctx context.Context, d Draft) (string, error) {
	if err := a.needBackend(); err != nil {
		return "", err
	}
	self := a.Keys.CurrentSession()
	if !self.IsUnlocked {
		return "", errs.ErrNotUnlocked
	}
	if d.ID == "" {
		d.ID = NewEntryID()
	}

	owners, pubs, err := a.resolveRecipients(ctx, self, d.Recipients)
	if err != nil {
		return "", err
	}
	enc, err := a.Keys.EncryptEntryForRecipients(d.Title, d.Content, pubs)
	if err != nil {
		return "", err
	}
	if err := a.upload(ctx, d.ID, enc, owners, d.Public); err != nil {
		return "", err
	}
	a.log.Info("entry published", zap.String("entry", d.ID), zap.Int("grants", len(enc.Grants)), zap.Bool("public", d.Public))
	return d.ID, nil
}

// Rotate re-encrypts an own entry under a fresh key for recipients and
// replaces every grant. Recipients left out lose access even if they kept
// the old entry key.
func (a *App) Rotate(ctx context.Context, entryID string, recipients []string, public bool) error {
	if err := a.needBackend(); err != nil {
		return err
	}
	self := a.Keys.CurrentSession()
	if !self.IsUnlocked {
		return errs.ErrNotUnlocked
	}
	e, author, err := a.fetch(ctx, entryID)
	if err != nil {
		return err
	}
	owners, pubs, err := a.resolveRecipients(ctx, self, recipients)
	if err != nil {
		return err
	}
	enc, err := a.Keys.RotateEntry(convert.PayloadOf(*e), convert.KeyGrantOf(*e), author, pubs)
	if err != nil {
		return err
	}
	if err := a.upload(ctx, entryID, enc, owners, public); err != nil {
		return err
	}
	a.log.Info("entry key rotated", zap.String("entry", entryID), zap.Int("grants", len(enc.Grants)))
	return nil
}

// Open fetches and decrypts an entry the caller holds a grant for.
func (a *App) Open(ctx context.Context, entryID string) (*model.EntryPlaintext, error) {
	if err := a.needBackend(); err != nil {
		return nil, err
	}
	e, author, err := a.fetch(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return a.Keys.DecryptEntry(convert.PayloadOf(*e), convert.KeyGrantOf(*e), author)
}

// SharedWithMe lists and decrypts entries others shared with the caller.
// Entries that fail to open are returned with Err set.
func (a *App) SharedWithMe(ctx context.Context) ([]SharedEntry, error) {
	if err := a.needBackend(); err != nil {
		return nil, err
	}
	if !a.Keys.IsUnlocked() {
		return nil, errs.ErrNotUnlocked
	}
	list, err := a.backend.SharedWithMe(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SharedEntry, 0, len(list))
	failed := 0
	for _, e := range list {
		se := SharedEntry{ID: e.ID, AuthorID: e.Author.ID}
		author, err := convert.AuthorKeyOf(e)
		if err == nil {
			se.Plaintext, err = a.Keys.DecryptEntry(convert.PayloadOf(e), convert.KeyGrantOf(e), author)
		}
		if err != nil {
			se.Err = err
			failed++
		}
		out = append(out, se)
	}
	if failed > 0 {
		a.log.Warn("shared entries not decrypted", zap.Int("failed", failed), zap.Int("total", len(list)))
	}
	return out, nil
}

// Share grants an existing entry to one more recipient without re-encrypting it.
func (a *App) Share(ctx context.Context, entryID, recipientID string) error {
	if err := a.needBackend(); err != nil {
		return err
	}
	e, author, err := a.fetch(ctx, entryID)
	if err != nil {
		return err
	}
	pub, err := a.backend.PublicKey(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("public key of %s: %w", recipientID, err)
	}
	if pub == author {
		return fmt.Errorf("%w: recipient %s is the author", errs.ErrValidation, recipientID)
	}
	key, err := a.Keys.OpenEntryKey(convert.KeyGrantOf(*e), author)
	if err != nil {
		return err
	}
	defer wipe(key)
	grants, err := a.Keys.GrantEntryKey(key, [][model.PublicKeyLen]byte{pub})
	if err != nil {
		return err
	}
	for _, g := range grants {
		if g.RecipientPublicKey != pub {
			continue
		}
		return a.backend.PutGrant(ctx, entryID, recipientID, convert.PutGrantRequest{
			EncryptedEntryKeyB64: g.EncryptedEntryKeyB64,
			KeyNonceB64:          g.KeyNonceB64,
		})
	}
	return fmt.Errorf("%w: no grant sealed for %s", errs.ErrValidation, recipientID)
}

// Revoke drops one recipient's grant. A recipient who already read the entry
// key keeps it; follow with Rotate to cut them off.
func (a *App) Revoke(ctx context.Context, entryID, recipientID string) error {
	if err := a.needBackend(); err != nil {
		return err
	}
	return a.backend.RevokeGrant(ctx, entryID, recipientID)
}

// Unpublish removes an entry and all its grants from the backend.
func (a *App) Unpublish(ctx context.Context, entryID string) error {
	if err := a.needBackend(); err != nil {
		return err
	}
	return a.backend.Unpublish(ctx, entryID)
}

// CreateShareLink builds a capability URL for a public entry. Anyone holding
// the URL can read the entry.
func (a *App) CreateShareLink(ctx context.Context, entryID string) (string, error) {
	if err := a.needBackend(); err != nil {
		return "", err
	}
	if a.shareBase == "" {
		return "", fmt.Errorf("%w: no share base url configured", errs.ErrValidation)
	}
	e, author, err := a.fetch(ctx, entryID)
	if err != nil {
		return "", err
	}
	if !e.IsPublic {
		return "", fmt.Errorf("%w: entry %s is not public", errs.ErrValidation, entryID)
	}
	key, err := a.Keys.OpenEntryKey(convert.KeyGrantOf(*e), author)
	if err != nil {
		return "", err
	}
	defer wipe(key)
	nonce, err := b64.DecodeString(e.EncryptionMetadata.ContentNonceB64)
	if err != nil {
		return "", errs.ErrDecryptionFailed
	}
	tok, err := sharelink.Encode(entryID, key, nonce, author[:])
	if err != nil {
		return "", err
	}
	return sharelink.BuildURL(a.shareBase, tok)
}

// OpenShareLink decrypts the entry behind a share URL or bare token. It needs
// no session.
func (a *App) OpenShareLink(ctx context.Context, link string) (*model.EntryPlaintext, error) {
	if err := a.needBackend(); err != nil {
		return nil, err
	}
	tok, err := sharelink.ParseURL(link)
	if err != nil {
		return nil, err
	}
	st, err := sharelink.Decode(tok)
	if err != nil {
		return nil, err
	}
	e, err := a.backend.PublicEntry(ctx, st.EntryID)
	if err != nil {
		return nil, err
	}
	payload := model.EncryptedEntryPayload{
		EncryptedContentB64: e.EncryptedContent,
		ContentNonceB64:     b64.EncodeToString(st.KeyData.ContentNonce),
	}
	return e2e.OpenPayload(st.KeyData.RawEntryKey, payload)
}

func (a *App) fetch(ctx context.Context, entryID string) (*convert.Entry, [model.PublicKeyLen]byte, error) {
	var author [model.PublicKeyLen]byte
	if !a.Keys.IsUnlocked() {
		return nil, author, errs.ErrNotUnlocked
	}
	e, err := a.backend.Entry(ctx, entryID)
	if err != nil {
		return nil, author, err
	}
	author, err = convert.AuthorKeyOf(*e)
	if err != nil {
		return nil, author, err
	}
	return e, author, nil
}

// resolveRecipients looks up recipient public keys. The returned owner map
// tells which user every key belongs to, the author included.
func (a *App) resolveRecipients(ctx context.Context, self model.E2ESession, ids []string) (map[[model.PublicKeyLen]byte]string, [][model.PublicKeyLen]byte, error) {
	owners := map[[model.PublicKeyLen]byte]string{self.UserKeyPair.PublicKey: self.UserID}
	self.UserKeyPair.Wipe()
	pubs := make([][model.PublicKeyLen]byte, 0, len(ids))
	for _, id := range ids {
		if id == self.UserID {
			continue
		}
		pub, err := a.backend.PublicKey(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("public key of %s: %w", id, err)
		}
		if other, dup := owners[pub]; dup && other != id {
			return nil, nil, fmt.Errorf("%w: users %s and %s share a public key", errs.ErrValidation, other, id)
		}
		owners[pub] = id
		pubs = append(pubs, pub)
	}
	return owners, pubs, nil
}

func (a *App) upload(ctx context.Context, id string, enc *model.EncryptedEntry, owners map[[model.PublicKeyLen]byte]string, public bool) error {
	ids := make([]string, len(enc.Grants))
	for i, g := range enc.Grants {
		ids[i] = owners[g.RecipientPublicKey]
	}
	req, err := convert.ToPublishRequest(enc.Payload, enc.Grants, ids, public)
	if err != nil {
		return err
	}
	return a.backend.Publish(ctx, id, req)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
