// Package model defines domain entities used by the encryption core, services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Key sizes shared by the box layer.
const (
	PublicKeyLen = 32
	SecretKeyLen = 32
)

// UserKeyPair is a box-style asymmetric keypair. The secret key never leaves
// the device unless wrapped.
type UserKeyPair struct {
	PublicKey [PublicKeyLen]byte
	SecretKey [SecretKeyLen]byte
}

// Wipe zeroes the secret key in place.
func (kp *UserKeyPair) Wipe() {
	if kp == nil {
		return
	}
	for i := range kp.SecretKey {
		kp.SecretKey[i] = 0
	}
}

// KDFParams records how a wrapping key was derived.
type KDFParams struct {
	Name    string `json:"name"`              // "argon2id"
	Time    uint32 `json:"time,omitempty"`    // iterations
	Memory  uint32 `json:"memory,omitempty"`  // KiB
	Threads uint8  `json:"threads,omitempty"` // lanes
}

// WrappedPrivateKey is the only at-rest representation of a user's secret key.
type WrappedPrivateKey struct {
	EncryptedSecretKeyB64 string     `json:"encryptedSecretKeyB64"`
	SaltB64               string     `json:"saltB64"`
	NonceB64              string     `json:"nonceB64"`
	PublicKeyB64          string     `json:"publicKeyB64"`
	CreatedAt             time.Time  `json:"createdAt"`
	KDF                   *KDFParams `json:"kdf,omitempty"`    // nil means default parameters
	UserID                string     `json:"userId,omitempty"` // owner, kept in the local copy only
}

// E2ESession is the in-memory unlock state. It is never persisted.
type E2ESession struct {
	IsUnlocked  bool
	UserKeyPair *UserKeyPair
	UserID      string
}

// EntryPlaintext is what gets sealed under an entry key.
type EntryPlaintext struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// EncryptedEntryPayload is entry content sealed under a per-entry key.
type EncryptedEntryPayload struct {
	EncryptedContentB64 string `json:"encryptedContentB64"`
	ContentNonceB64     string `json:"contentNonceB64"`
}

// EntryKeyGrant is the entry key boxed from the author to one recipient.
type EntryKeyGrant struct {
	EncryptedEntryKeyB64 string            `json:"encryptedEntryKeyB64"`
	KeyNonceB64          string            `json:"keyNonceB64"`
	RecipientPublicKey   [PublicKeyLen]byte `json:"recipientPublicKey"`
}

// EncryptedEntry bundles a payload with all grants produced for it.
type EncryptedEntry struct {
	Payload EncryptedEntryPayload
	Grants  []EntryKeyGrant
}

// BiometricCredential escrows the E2E unlock password under a biometric-derived key.
type BiometricCredential struct {
	CredentialID      string    `json:"credentialId"`
	EncryptedPassword []byte    `json:"encryptedPassword"`
	Salt              []byte    `json:"salt"`
	Nonce             []byte    `json:"nonce"`
	Created           time.Time `json:"created"`
}

// ShareKeyData is the decryption material embedded in a share link.
type ShareKeyData struct {
	RawEntryKey     []byte `json:"rawEntryKey"`
	ContentNonce    []byte `json:"contentNonce"`
	AuthorPublicKey []byte `json:"authorPublicKey"`
}

// ShareToken is a capability: whoever holds it can read one entry.
type ShareToken struct {
	EntryID string       `json:"entryId"`
	KeyData ShareKeyData `json:"keyData"`
}

// Entry is a published entry as stored by the backend.
type Entry struct {
	ID               uuid.UUID
	AuthorID         uuid.UUID
	EncryptedContent []byte
	ContentNonce     []byte
	IsPublic         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Grant is a stored EntryKeyGrant addressed to one recipient.
type Grant struct {
	EntryID           uuid.UUID
	RecipientID       uuid.UUID
	EncryptedEntryKey []byte
	KeyNonce          []byte
	CreatedAt         time.Time
}

// PublishEntry is a publish intent: content plus the full grant set.
type PublishEntry struct {
	ID               uuid.UUID
	EncryptedContent []byte
	ContentNonce     []byte
	IsPublic         bool
	Grants           []Grant
}

// EntryWithGrant is an entry together with the grant addressed to the caller
// and the author's public key needed to open it.
type EntryWithGrant struct {
	Entry           Entry
	Grant           Grant
	AuthorPublicKey []byte
}

// UserKey is the server-side record of a user's wrapped key and public key.
type UserKey struct {
	UserID    uuid.UUID
	PublicKey []byte
	Wrapped   []byte // JSON WrappedPrivateKey, opaque to the server
	CreatedAt time.Time
}
