package clientcrypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// KDF names recorded next to wrapped keys.
const (
	KDFArgon2id = "argon2id"

	// LegacyIterations is the PBKDF2-SHA256 cost of the self-describing legacy blob.
	LegacyIterations = 100_000
)

// Bounds accepted for recorded Argon2id parameters.
const (
	MaxKDFTime   = 64
	MaxKDFMemory = 1 << 20 // KiB, 1 GiB
)

// DefaultKDF costs on the order of 100ms on commodity hardware.
var DefaultKDF = model.KDFParams{
	Name:    KDFArgon2id,
	Time:    3,
	Memory:  64 * 1024,
	Threads: 1,
}

// ValidKDF checks recorded parameters before they reach argon2, which panics
// on zero rounds or threads. It returns errs.ErrValidation on failure.
func ValidKDF(p model.KDFParams) error {
	switch {
	case p.Name != KDFArgon2id:
		return fmt.Errorf("%w: kdf %q", errs.ErrValidation, p.Name)
	case p.Time < 1 || p.Time > MaxKDFTime:
		return fmt.Errorf("%w: kdf time %d", errs.ErrValidation, p.Time)
	case p.Threads < 1:
		return fmt.Errorf("%w: kdf threads %d", errs.ErrValidation, p.Threads)
	case p.Memory < 8*uint32(p.Threads) || p.Memory > MaxKDFMemory:
		return fmt.Errorf("%w: kdf memory %d", errs.ErrValidation, p.Memory)
	}
	return nil
}

// DeriveKey derives a wrapping key from password and salt using Argon2id.
// A nil params pointer selects DefaultKDF.
func DeriveKey(password string, salt []byte, params *model.KDFParams) ([]byte, error) {
	p := DefaultKDF
	if params != nil {
		p = *params
	}
	if err := ValidKDF(p); err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, KeyLen), nil
}

// DeriveLegacyKey derives a key with PBKDF2-HMAC-SHA256 for legacy per-entry blobs.
func DeriveLegacyKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, LegacyIterations, KeyLen, sha256.New)
}
