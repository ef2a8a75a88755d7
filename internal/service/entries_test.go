package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

func grantFor(recipient uuid.UUID) model.Grant {
	return model.Grant{
		RecipientID:       recipient,
		EncryptedEntryKey: bytes.Repeat([]byte{1}, 48),
		KeyNonce:          bytes.Repeat([]byte{2}, 24),
	}
}

func validEntry(author uuid.UUID, recipients ...uuid.UUID) model.PublishEntry {
	pe := model.PublishEntry{
		ID:               uuid.Must(uuid.NewV4()),
		EncryptedContent: bytes.Repeat([]byte{3}, 40),
		ContentNonce:     bytes.Repeat([]byte{4}, 12),
		Grants:           []model.Grant{grantFor(author)},
	}
	for _, r := range recipients {
		pe.Grants = append(pe.Grants, grantFor(r))
	}
	return pe
}

func TestNewEntryService_DefaultMaxGrants(t *testing.T) {
	s := NewEntryService(&fakeEntries{}, 0)
	require.Equal(t, 256, s.maxGrants)
}

func TestEntryService_Publish_OK(t *testing.T) {
	repo := &fakeEntries{}
	s := NewEntryService(repo, 8)
	author := uuid.Must(uuid.NewV4())
	reader := uuid.Must(uuid.NewV4())

	pe := validEntry(author, reader)
	require.NoError(t, s.Publish(context.Background(), author, pe))
	require.Len(t, repo.published, 1)
	for _, g := range repo.published[0].Grants {
		require.Equal(t, pe.ID, g.EntryID)
	}
}

func TestEntryService_Publish_Validation(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEntries{}
	s := NewEntryService(repo, 2)
	author := uuid.Must(uuid.NewV4())
	reader := uuid.Must(uuid.NewV4())

	cases := map[string]func(pe *model.PublishEntry){
		"nil id":          func(pe *model.PublishEntry) { pe.ID = uuid.Nil },
		"short content":   func(pe *model.PublishEntry) { pe.EncryptedContent = []byte("x") },
		"bad nonce":       func(pe *model.PublishEntry) { pe.ContentNonce = []byte("short") },
		"no author grant": func(pe *model.PublishEntry) { pe.Grants = []model.Grant{grantFor(reader)} },
		"duplicate":       func(pe *model.PublishEntry) { pe.Grants = append(pe.Grants, grantFor(author)) },
		"too many": func(pe *model.PublishEntry) {
			pe.Grants = append(pe.Grants, grantFor(reader), grantFor(uuid.Must(uuid.NewV4())))
		},
		"bad box nonce": func(pe *model.PublishEntry) { pe.Grants[0].KeyNonce = []byte("n") },
		"nil recipient": func(pe *model.PublishEntry) { pe.Grants[0].RecipientID = uuid.Nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			pe := validEntry(author)
			mutate(&pe)
			require.ErrorIs(t, s.Publish(ctx, author, pe), errs.ErrValidation)
		})
	}
	require.Empty(t, repo.published)
}

func TestEntryService_RevokeGrant(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEntries{}
	s := NewEntryService(repo, 0)
	author := uuid.Must(uuid.NewV4())
	reader := uuid.Must(uuid.NewV4())
	entry := uuid.Must(uuid.NewV4())

	require.ErrorIs(t, s.RevokeGrant(ctx, author, entry, author), errs.ErrValidation)
	require.NoError(t, s.RevokeGrant(ctx, author, entry, reader))
	require.Equal(t, [][3]uuid.UUID{{author, entry, reader}}, repo.delGrants)
}

func TestEntryService_PutGrant(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEntries{}
	s := NewEntryService(repo, 0)
	author := uuid.Must(uuid.NewV4())

	g := grantFor(uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, s.PutGrant(ctx, author, g), errs.ErrValidation)

	g.EntryID = uuid.Must(uuid.NewV4())
	require.NoError(t, s.PutGrant(ctx, author, g))

	g.KeyNonce = nil
	require.ErrorIs(t, s.PutGrant(ctx, author, g), errs.ErrValidation)
	require.Len(t, repo.putGrants, 1)
}

func TestEntryService_SharedWithMe_NeverNil(t *testing.T) {
	s := NewEntryService(&fakeEntries{}, 0)
	out, err := s.SharedWithMe(context.Background(), uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestEntryService_Get_Passthrough(t *testing.T) {
	ew := &model.EntryWithGrant{Entry: model.Entry{ID: uuid.Must(uuid.NewV4())}}
	repo := &fakeEntries{getOut: ew}
	s := NewEntryService(repo, 0)

	got, err := s.Get(context.Background(), uuid.Must(uuid.NewV4()), ew.Entry.ID)
	require.NoError(t, err)
	require.Equal(t, ew, got)

	got, err = s.GetPublic(context.Background(), ew.Entry.ID)
	require.NoError(t, err)
	require.Equal(t, ew, got)

	_, err = s.GetPublic(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestEntryService_PurgeGrants(t *testing.T) {
	repo := &fakeEntries{userGrants: 3}
	s := NewEntryService(repo, 0)

	n, err := s.PurgeGrants(context.Background(), uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	_, err = s.PurgeGrants(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}
