package clientcrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/and161185/journal-keeper/internal/model"
)

// BoxNonceLen is the nonce size of the box construction.
const BoxNonceLen = 24

// GenerateKeyPair creates a fresh X25519 keypair.
func GenerateKeyPair() (*model.UserKeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &model.UserKeyPair{PublicKey: *pub, SecretKey: *sec}, nil
}

// NewBoxNonce returns a fresh random box nonce.
func NewBoxNonce() (*[BoxNonceLen]byte, error) {
	var n [BoxNonceLen]byte
	if _, err := rand.Read(n[:]); err != nil {
		return nil, err
	}
	return &n, nil
}

// BoxSeal encrypts plaintext from sender to recipient. Only entry keys go through here.
func BoxSeal(plaintext []byte, nonce *[BoxNonceLen]byte, recipientPublic, senderSecret *[32]byte) []byte {
	return box.Seal(nil, plaintext, nonce, recipientPublic, senderSecret)
}

// BoxOpen reverses BoxSeal. ok is false on any authentication failure.
func BoxOpen(ciphertext []byte, nonce *[BoxNonceLen]byte, senderPublic, recipientSecret *[32]byte) ([]byte, bool) {
	return box.Open(nil, ciphertext, nonce, senderPublic, recipientSecret)
}

// PublicKeyFromBytes copies b into a fixed-size public key.
func PublicKeyFromBytes(b []byte) (*[32]byte, bool) {
	if len(b) != model.PublicKeyLen {
		return nil, false
	}
	var k [32]byte
	copy(k[:], b)
	return &k, true
}

// PublicFromSecret recomputes the X25519 public key of a secret key.
func PublicFromSecret(secret *[32]byte) (*[32]byte, error) {
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	var k [32]byte
	copy(k[:], pub)
	return &k, nil
}
