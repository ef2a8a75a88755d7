// Package passcache implements the password-only encryption path for local
// entries and an in-memory cache of the passwords that opened them.
//
// A blob is base64(salt || nonce || ciphertext || tag) with no other header.
package passcache

import (
	"encoding/base64"
	"sync"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/errs"
)

const minBlobLen = cc.SaltLen + cc.NonceLen + cc.TagLen

// Encrypt seals plaintext under a PBKDF2 key derived from password and a fresh salt.
func Encrypt(plaintext []byte, password string) (string, error) {
	salt, err := cc.NewSalt()
	if err != nil {
		return "", err
	}
	nonce, err := cc.NewNonce()
	if err != nil {
		return "", err
	}
	key := cc.DeriveLegacyKey(password, salt)
	defer wipe(key)

	ct, err := cc.Seal(key, nonce, plaintext)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(ct))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. A wrong password and a damaged blob both yield
// errs.ErrAuthentication.
func Decrypt(blob, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(raw) < minBlobLen {
		return nil, errs.ErrAuthentication
	}
	salt := raw[:cc.SaltLen]
	nonce := raw[cc.SaltLen : cc.SaltLen+cc.NonceLen]
	ct := raw[cc.SaltLen+cc.NonceLen:]

	key := cc.DeriveLegacyKey(password, salt)
	defer wipe(key)

	pt, err := cc.Open(key, nonce, ct)
	if err != nil {
		return nil, errs.ErrAuthentication
	}
	return pt, nil
}

// IsEncrypted reports whether s looks like an Encrypt blob: valid base64 of at
// least salt+nonce+tag bytes. It is a length heuristic, not a signature, and
// any long enough base64 text matches. Treat the answer as a hint.
func IsEncrypted(s string) bool {
	raw, err := base64.StdEncoding.DecodeString(s)
	return err == nil && len(raw) >= minBlobLen
}

// Cache maps entry ids to the password that opened them. It lives in memory only.
type Cache struct {
	mu  sync.RWMutex
	pwd map[string]string
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{pwd: map[string]string{}} }

// Set remembers password for entryID.
func (c *Cache) Set(entryID, password string) {
	c.mu.Lock()
	c.pwd[entryID] = password
	c.mu.Unlock()
}

// Get returns the cached password for entryID.
func (c *Cache) Get(entryID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pwd[entryID]
	return p, ok
}

// Forget drops one entry.
func (c *Cache) Forget(entryID string) {
	c.mu.Lock()
	delete(c.pwd, entryID)
	c.mu.Unlock()
}

// Clear drops every cached password.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.pwd = map[string]string{}
	c.mu.Unlock()
}

// Len reports how many entries are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pwd)
}

// Decrypt opens blob with the cached password of entryID.
func (c *Cache) Decrypt(entryID, blob string) ([]byte, error) {
	p, ok := c.Get(entryID)
	if !ok {
		return nil, errs.ErrKeyNotFound
	}
	return Decrypt(blob, p)
}

// LockedEntry is an encrypted local entry offered to BatchUnlock.
type LockedEntry struct {
	ID   string
	Blob string
}

// BatchResult is the aggregate outcome of BatchUnlock.
type BatchResult struct {
	SuccessCount    int
	UnlockedEntries []string
}

// BatchUnlock tries password against every entry. Only entries that open are
// cached; failures are counted out, not reported one by one.
func (c *Cache) BatchUnlock(password string, entries []LockedEntry) BatchResult {
	res := BatchResult{UnlockedEntries: []string{}}
	for _, e := range entries {
		pt, err := Decrypt(e.Blob, password)
		if err != nil {
			continue
		}
		wipe(pt)
		c.Set(e.ID, password)
		res.SuccessCount++
		res.UnlockedEntries = append(res.UnlockedEntries, e.ID)
	}
	return res
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
