// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a conditional write lost (e.g. wrapped key already set).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization of a request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation or an existing key set.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation")
)

// Encryption sentinels. None of them carries key material or plaintext.
var (
	// ErrAuthentication is a wrong password or AEAD tag mismatch during unlock.
	// It is never distinguishable from corrupted ciphertext.
	ErrAuthentication = errors.New("authentication failed")

	// ErrDecryptionFailed is the single opaque failure of any decrypt path.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNotUnlocked indicates an entry operation while the session is locked.
	ErrNotUnlocked = errors.New("encryption session not unlocked")

	// ErrKeyNotFound indicates no wrapped key or no grant exists for the caller.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBiometricUnavailable indicates the platform has no usable biometric credential.
	ErrBiometricUnavailable = errors.New("biometric unavailable")

	// ErrBiometricTimeout indicates the biometric prompt was not answered in time.
	ErrBiometricTimeout = errors.New("biometric prompt timed out")

	// ErrMalformedToken indicates a share link could not be decoded.
	ErrMalformedToken = errors.New("malformed share token")

	// ErrStorage wraps failures of the underlying persistence layer.
	ErrStorage = errors.New("storage failure")
)
