package clientcrypto

import (
	"crypto/subtle"
	"errors"
	"testing"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

var cheapKDF = &model.KDFParams{Name: KDFArgon2id, Time: 1, Memory: 64, Threads: 1}

func derive(t *testing.T, password string, salt []byte) []byte {
	t.Helper()
	k, err := DeriveKey(password, salt, cheapKDF)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	return k
}

func TestDeriveKey_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	s1, _ := NewSalt()
	s2, _ := NewSalt()
	k1 := derive(t, "secret-pass", s1)
	k2 := derive(t, "secret-pass", s1)
	if len(k1) != KeyLen {
		t.Fatalf("key len=%d", len(k1))
	}
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveKey not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, derive(t, "secret-pass", s2)) != 0 {
		t.Fatalf("DeriveKey must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, derive(t, "other", s1)) != 0 {
		t.Fatalf("DeriveKey must change with password")
	}
}

func TestDeriveKey_RejectsBadParams(t *testing.T) {
	t.Parallel()
	salt, _ := NewSalt()
	cases := map[string]model.KDFParams{
		"zero":         {Name: KDFArgon2id},
		"no threads":   {Name: KDFArgon2id, Time: 1, Memory: 64},
		"no rounds":    {Name: KDFArgon2id, Memory: 64, Threads: 1},
		"tiny memory":  {Name: KDFArgon2id, Time: 1, Memory: 15, Threads: 2},
		"huge memory":  {Name: KDFArgon2id, Time: 1, Memory: MaxKDFMemory + 1, Threads: 1},
		"huge rounds":  {Name: KDFArgon2id, Time: MaxKDFTime + 1, Memory: 64, Threads: 1},
		"unknown name": {Name: "scrypt", Time: 1, Memory: 64, Threads: 1},
	}
	for name, p := range cases {
		p := p
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			k, err := DeriveKey("pw", salt, &p)
			if !errors.Is(err, errs.ErrValidation) || k != nil {
				t.Fatalf("want ErrValidation, got key=%x err=%v", k, err)
			}
		})
	}
	if err := ValidKDF(DefaultKDF); err != nil {
		t.Fatalf("DefaultKDF rejected: %v", err)
	}
}

func TestDeriveLegacyKey_Deterministic(t *testing.T) {
	t.Parallel()
	salt := []byte("0123456789abcdef0123456789abcdef")
	k1 := DeriveLegacyKey("pw", salt)
	k2 := DeriveLegacyKey("pw", salt)
	if len(k1) != KeyLen || subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveLegacyKey not deterministic / wrong len")
	}
	if subtle.ConstantTimeCompare(k1, DeriveLegacyKey("pw2", salt)) != 0 {
		t.Fatalf("DeriveLegacyKey must change with password")
	}
}
