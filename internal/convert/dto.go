// Package convert maps domain types to the JSON documents of the HTTP API and back.
package convert

import (
	"time"
)

// EncryptionMetadata is what a reader needs besides the ciphertext.
type EncryptionMetadata struct {
	EncryptedEntryKeyB64 string `json:"encryptedEntryKeyB64"`
	KeyNonceB64          string `json:"keyNonceB64"`
	ContentNonceB64      string `json:"contentNonceB64"`
}

// Author identifies the entry author and the public key that sealed the grants.
type Author struct {
	ID        string `json:"id"`
	PublicKey string `json:"public_key"`
}

// AccessKey is the grant addressed to the caller.
type AccessKey struct {
	RecipientID          string `json:"recipientId"`
	EncryptedEntryKeyB64 string `json:"encryptedEntryKeyB64"`
	KeyNonceB64          string `json:"keyNonceB64"`
}

// Entry is a published entry as returned by the API.
type Entry struct {
	ID                 string             `json:"id"`
	EncryptedContent   string             `json:"encrypted_content"`
	IsPublic           bool               `json:"is_public"`
	EncryptionMetadata EncryptionMetadata `json:"encryption_metadata"`
	AccessKey          *AccessKey         `json:"access_key,omitempty"`
	Author             Author             `json:"author"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SharedEntries is the shared-with-me listing.
type SharedEntries struct {
	Entries []Entry `json:"entries"`
}

// Grant is one recipient's sealed entry key in a publish request.
type Grant struct {
	RecipientID          string `json:"recipientId" validate:"required,uuid"`
	EncryptedEntryKeyB64 string `json:"encryptedEntryKeyB64" validate:"required,base64"`
	KeyNonceB64          string `json:"keyNonceB64" validate:"required,base64"`
}

// PublishRequest creates or replaces an entry with its full grant set.
type PublishRequest struct {
	EncryptedContentB64 string  `json:"encryptedContentB64" validate:"required,base64"`
	ContentNonceB64     string  `json:"contentNonceB64" validate:"required,base64"`
	IsPublic            bool    `json:"isPublic"`
	Grants              []Grant `json:"grants" validate:"required,min=1,dive"`
}

// PutGrantRequest adds or replaces one grant; the recipient is in the path.
type PutGrantRequest struct {
	EncryptedEntryKeyB64 string `json:"encryptedEntryKeyB64" validate:"required,base64"`
	KeyNonceB64          string `json:"keyNonceB64" validate:"required,base64"`
}

// PublicKey is a user's public key.
type PublicKey struct {
	UserID       string `json:"userId"`
	PublicKeyB64 string `json:"publicKeyB64"`
}

// DeletedGrants reports how many grants a reset removed.
type DeletedGrants struct {
	Deleted int64 `json:"deleted"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}
