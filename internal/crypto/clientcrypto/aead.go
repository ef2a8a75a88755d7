// Package clientcrypto contains client-side primitives: AEAD, key derivation and the box layer.
package clientcrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/and161185/journal-keeper/internal/errs"
)

// Params
const (
	KeyLen   = chacha20poly1305.KeySize   // 32
	NonceLen = chacha20poly1305.NonceSize // 12
	TagLen   = chacha20poly1305.Overhead  // 16
	SaltLen  = 32
)

// Rand returns n bytes from the system CSPRNG.
func Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewKey returns a fresh random symmetric key.
func NewKey() ([]byte, error) { return Rand(KeyLen) }

// NewNonce returns a fresh random AEAD nonce. Nonces are never derived from content.
func NewNonce() ([]byte, error) { return Rand(NonceLen) }

// NewSalt returns a fresh random KDF salt.
func NewSalt() ([]byte, error) { return Rand(SaltLen) }

// Seal encrypts plaintext with ChaCha20-Poly1305 and returns ciphertext||tag.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLen {
		return nil, errs.ErrValidation
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext||tag. Every failure, including a bad
// key length, is reported as errs.ErrDecryptionFailed and no plaintext is returned.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceLen || len(ciphertext) < TagLen {
		return nil, errs.ErrDecryptionFailed
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	return pt, nil
}
