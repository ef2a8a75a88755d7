package service

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/journal-keeper/internal/errs"
)

func TestTokens_IssueVerify(t *testing.T) {
	tk := NewTokens([]byte("test-key"), time.Hour)
	user := uuid.Must(uuid.NewV4())

	tok, exp, err := tk.Issue(user)
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	got, err := tk.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, user, got)
}

func TestTokens_Rejects(t *testing.T) {
	tk := NewTokens([]byte("test-key"), time.Hour)
	user := uuid.Must(uuid.NewV4())
	tok, _, err := tk.Issue(user)
	require.NoError(t, err)

	other := NewTokens([]byte("other-key"), time.Hour)
	_, err = other.Verify(tok)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = tk.Verify("garbage")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	expired := NewTokens([]byte("test-key"), time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(user)
	require.NoError(t, err)
	_, err = tk.Verify(old)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}
