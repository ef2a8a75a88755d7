package e2e

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	cc "github.com/and161185/journal-keeper/internal/crypto/clientcrypto"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

var b64 = base64.StdEncoding

// wrapKeyPair seals kp.SecretKey under a key derived from password and a fresh salt.
func wrapKeyPair(kp *model.UserKeyPair, password string, kdf *model.KDFParams, now time.Time) (*model.WrappedPrivateKey, error) {
	salt, err := cc.NewSalt()
	if err != nil {
		return nil, err
	}
	nonce, err := cc.NewNonce()
	if err != nil {
		return nil, err
	}
	key, err := cc.DeriveKey(password, salt, kdf)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	ct, err := cc.Seal(key, nonce, kp.SecretKey[:])
	if err != nil {
		return nil, err
	}
	wk := &model.WrappedPrivateKey{
		EncryptedSecretKeyB64: b64.EncodeToString(ct),
		SaltB64:               b64.EncodeToString(salt),
		NonceB64:              b64.EncodeToString(nonce),
		PublicKeyB64:          b64.EncodeToString(kp.PublicKey[:]),
		CreatedAt:             now.UTC(),
	}
	if kdf != nil {
		p := *kdf
		wk.KDF = &p
	}
	return wk, nil
}

// unwrapKeyPair reverses wrapKeyPair. A wrong password, a corrupted blob, out of
// range KDF parameters and a secret that does not match the stored public key
// all yield errs.ErrAuthentication.
func unwrapKeyPair(wk *model.WrappedPrivateKey, password string) (*model.UserKeyPair, error) {
	if wk == nil {
		return nil, errs.ErrKeyNotFound
	}
	ct, err1 := b64.DecodeString(wk.EncryptedSecretKeyB64)
	salt, err2 := b64.DecodeString(wk.SaltB64)
	nonce, err3 := b64.DecodeString(wk.NonceB64)
	pub, err4 := b64.DecodeString(wk.PublicKeyB64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || len(pub) != model.PublicKeyLen {
		return nil, errs.ErrAuthentication
	}

	key, err := cc.DeriveKey(password, salt, wk.KDF)
	if err != nil {
		return nil, errs.ErrAuthentication
	}
	defer wipe(key)

	secret, err := cc.Open(key, nonce, ct)
	if err != nil || len(secret) != model.SecretKeyLen {
		return nil, errs.ErrAuthentication
	}
	defer wipe(secret)

	kp := &model.UserKeyPair{}
	copy(kp.SecretKey[:], secret)
	copy(kp.PublicKey[:], pub)

	derived, err := cc.PublicFromSecret(&kp.SecretKey)
	if err != nil || *derived != kp.PublicKey {
		kp.Wipe()
		return nil, errs.ErrAuthentication
	}
	return kp, nil
}

func encodeWrapped(wk *model.WrappedPrivateKey) ([]byte, error) {
	return json.Marshal(wk)
}

func decodeWrapped(b []byte) (*model.WrappedPrivateKey, error) {
	var wk model.WrappedPrivateKey
	if err := json.Unmarshal(b, &wk); err != nil {
		return nil, fmt.Errorf("%w: wrapped key blob: %w", errs.ErrStorage, err)
	}
	return &wk, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
