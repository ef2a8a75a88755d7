package clientcrypto

import (
	"bytes"
	"testing"
)

func TestGenerateKeyPair_Distinct(t *testing.T) {
	t.Parallel()
	a, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	b, _ := GenerateKeyPair()
	if a.PublicKey == b.PublicKey || a.SecretKey == b.SecretKey {
		t.Fatalf("keypairs must differ")
	}
}

func TestBox_SealOpen_AndIsolation(t *testing.T) {
	t.Parallel()
	author, _ := GenerateKeyPair()
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	entryKey, _ := NewKey()

	nonce, _ := NewBoxNonce()
	ct := BoxSeal(entryKey, nonce, &alice.PublicKey, &author.SecretKey)

	got, ok := BoxOpen(ct, nonce, &author.PublicKey, &alice.SecretKey)
	if !ok || !bytes.Equal(got, entryKey) {
		t.Fatalf("alice must open her grant")
	}
	if _, ok := BoxOpen(ct, nonce, &author.PublicKey, &bob.SecretKey); ok {
		t.Fatalf("bob must not open alice's grant")
	}
	if _, ok := BoxOpen(ct, nonce, &bob.PublicKey, &alice.SecretKey); ok {
		t.Fatalf("wrong sender key must fail")
	}
}

func TestBox_SelfGrant(t *testing.T) {
	t.Parallel()
	author, _ := GenerateKeyPair()
	entryKey, _ := NewKey()
	nonce, _ := NewBoxNonce()

	ct := BoxSeal(entryKey, nonce, &author.PublicKey, &author.SecretKey)
	got, ok := BoxOpen(ct, nonce, &author.PublicKey, &author.SecretKey)
	if !ok || !bytes.Equal(got, entryKey) {
		t.Fatalf("author must open own grant")
	}
}

func TestPublicKeyFromBytes(t *testing.T) {
	t.Parallel()
	if _, ok := PublicKeyFromBytes(make([]byte, 31)); ok {
		t.Fatalf("want rejection of short key")
	}
	k, ok := PublicKeyFromBytes(bytes.Repeat([]byte{7}, 32))
	if !ok || k[0] != 7 {
		t.Fatalf("copy mismatch")
	}
}
