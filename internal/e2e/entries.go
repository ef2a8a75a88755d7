package e2e

import (
	"encoding/json"
	"fmt"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// EncryptEntryForRecipients seals {title, content} under a fresh entry key and
// boxes that key to every recipient. The author is always a recipient and
// duplicate keys produce a single grant.
func (m *Manager) EncryptEntryForRecipients(title, content string, recipients [][model.PublicKeyLen]byte) (*model.EncryptedEntry, error) {
	kp, err := m.keyPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	entryKey, err := cc.NewKey()
	if err != nil {
		return nil, err
	}
	defer wipe(entryKey)

	payload, err := SealPayload(entryKey, model.EntryPlaintext{Title: title, Content: content})
	if err != nil {
		return nil, err
	}
	grants, err := grantKey(kp, entryKey, recipients)
	if err != nil {
		return nil, err
	}
	return &model.EncryptedEntry{Payload: *payload, Grants: grants}, nil
}

// DecryptEntry opens the grant addressed to the caller with the author's
// public key, then opens the payload. Any failure is errs.ErrDecryptionFailed.
func (m *Manager) DecryptEntry(payload model.EncryptedEntryPayload, grant model.EntryKeyGrant, senderPublicKey [model.PublicKeyLen]byte) (*model.EntryPlaintext, error) {
	entryKey, err := m.OpenEntryKey(grant, senderPublicKey)
	if err != nil {
		return nil, err
	}
	defer wipe(entryKey)
	return OpenPayload(entryKey, payload)
}

// OpenEntryKey recovers the raw entry key from a grant addressed to the caller.
// The caller owns the returned slice and should wipe it after use.
func (m *Manager) OpenEntryKey(grant model.EntryKeyGrant, senderPublicKey [model.PublicKeyLen]byte) ([]byte, error) {
	kp, err := m.keyPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	ct, err := b64.DecodeString(grant.EncryptedEntryKeyB64)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	nonceRaw, err := b64.DecodeString(grant.KeyNonceB64)
	if err != nil || len(nonceRaw) != cc.BoxNonceLen {
		return nil, errs.ErrDecryptionFailed
	}
	var nonce [cc.BoxNonceLen]byte
	copy(nonce[:], nonceRaw)

	key, ok := cc.BoxOpen(ct, &nonce, &senderPublicKey, &kp.SecretKey)
	if !ok || len(key) != cc.KeyLen {
		return nil, errs.ErrDecryptionFailed
	}
	return key, nil
}

// GrantEntryKey boxes an already known entry key to additional recipients.
// The author's self-grant is included as with EncryptEntryForRecipients.
func (m *Manager) GrantEntryKey(entryKey []byte, recipients [][model.PublicKeyLen]byte) ([]model.EntryKeyGrant, error) {
	if len(entryKey) != cc.KeyLen {
		return nil, fmt.Errorf("%w: entry key length", errs.ErrValidation)
	}
	kp, err := m.keyPair()
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()
	return grantKey(kp, entryKey, recipients)
}

// RotateEntry decrypts an entry with the caller's grant and re-encrypts it under
// a fresh entry key for recipients. Every previous grant becomes useless.
func (m *Manager) RotateEntry(payload model.EncryptedEntryPayload, grant model.EntryKeyGrant, senderPublicKey [model.PublicKeyLen]byte, recipients [][model.PublicKeyLen]byte) (*model.EncryptedEntry, error) {
	pt, err := m.DecryptEntry(payload, grant, senderPublicKey)
	if err != nil {
		return nil, err
	}
	return m.EncryptEntryForRecipients(pt.Title, pt.Content, recipients)
}

// SealPayload encrypts pt under entryKey with a fresh nonce.
func SealPayload(entryKey []byte, pt model.EntryPlaintext) (*model.EncryptedEntryPayload, error) {
	raw, err := json.Marshal(pt)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	nonce, err := cc.NewNonce()
	if err != nil {
		return nil, err
	}
	ct, err := cc.Seal(entryKey, nonce, raw)
	if err != nil {
		return nil, err
	}
	return &model.EncryptedEntryPayload{
		EncryptedContentB64: b64.EncodeToString(ct),
		ContentNonceB64:     b64.EncodeToString(nonce),
	}, nil
}

// OpenPayload decrypts a payload with a raw entry key. It needs no session and
// is what share-link viewers use.
func OpenPayload(entryKey []byte, payload model.EncryptedEntryPayload) (*model.EntryPlaintext, error) {
	ct, err := b64.DecodeString(payload.EncryptedContentB64)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	nonce, err := b64.DecodeString(payload.ContentNonceB64)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	raw, err := cc.Open(entryKey, nonce, ct)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	defer wipe(raw)
	var pt model.EntryPlaintext
	if err := json.Unmarshal(raw, &pt); err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	return &pt, nil
}

func grantKey(author *model.UserKeyPair, entryKey []byte, recipients [][model.PublicKeyLen]byte) ([]model.EntryKeyGrant, error) {
	seen := make(map[[model.PublicKeyLen]byte]struct{}, len(recipients)+1)
	all := make([][model.PublicKeyLen]byte, 0, len(recipients)+1)
	for _, r := range append([][model.PublicKeyLen]byte{author.PublicKey}, recipients...) {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		all = append(all, r)
	}

	grants := make([]model.EntryKeyGrant, 0, len(all))
	for _, r := range all {
		nonce, err := cc.NewBoxNonce()
		if err != nil {
			return nil, err
		}
		ct := cc.BoxSeal(entryKey, nonce, &r, &author.SecretKey)
		grants = append(grants, model.EntryKeyGrant{
			EncryptedEntryKeyB64: b64.EncodeToString(ct),
			KeyNonceB64:          b64.EncodeToString(nonce[:]),
			RecipientPublicKey:   r,
		})
	}
	return grants, nil
}
