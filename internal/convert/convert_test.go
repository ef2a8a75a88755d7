package convert

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

func enc(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func sampleEntryWithGrant() model.EntryWithGrant {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.Must(uuid.NewV4())
	return model.EntryWithGrant{
		Entry: model.Entry{
			ID:               id,
			AuthorID:         uuid.Must(uuid.NewV4()),
			EncryptedContent: []byte{1, 2, 3},
			ContentNonce:     []byte{4, 5},
			IsPublic:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		Grant: model.Grant{
			EntryID:           id,
			RecipientID:       uuid.Must(uuid.NewV4()),
			EncryptedEntryKey: []byte{6},
			KeyNonce:          []byte{7},
		},
		AuthorPublicKey: make([]byte, 32),
	}
}

func TestToEntry_WireNames(t *testing.T) {
	ew := sampleEntryWithGrant()

	b, err := json.Marshal(ToEntry(ew, true))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	require.Equal(t, enc([]byte{1, 2, 3}), m["encrypted_content"])
	meta := m["encryption_metadata"].(map[string]any)
	require.Equal(t, enc([]byte{4, 5}), meta["contentNonceB64"])
	require.Equal(t, enc([]byte{6}), meta["encryptedEntryKeyB64"])
	require.Equal(t, enc([]byte{7}), meta["keyNonceB64"])
	author := m["author"].(map[string]any)
	require.Equal(t, enc(make([]byte, 32)), author["public_key"])
	access := m["access_key"].(map[string]any)
	require.Equal(t, ew.Grant.RecipientID.String(), access["recipientId"])
}

func TestToEntry_PublicHasNoAccessKey(t *testing.T) {
	b, err := json.Marshal(ToEntry(sampleEntryWithGrant(), false))
	require.NoError(t, err)
	require.NotContains(t, string(b), "access_key")
}

func TestToEntries_NeverNil(t *testing.T) {
	b, err := json.Marshal(ToEntries(nil))
	require.NoError(t, err)
	require.JSONEq(t, `{"entries":[]}`, string(b))
}

func TestFromPublishRequest(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	rid := uuid.Must(uuid.NewV4())
	req := PublishRequest{
		EncryptedContentB64: enc([]byte("ciphertext")),
		ContentNonceB64:     enc(make([]byte, 12)),
		IsPublic:            true,
		Grants: []Grant{{
			RecipientID:          rid.String(),
			EncryptedEntryKeyB64: enc(make([]byte, 48)),
			KeyNonceB64:          enc(make([]byte, 24)),
		}},
	}

	pe, err := FromPublishRequest(id, req)
	require.NoError(t, err)
	require.Equal(t, id, pe.ID)
	require.True(t, pe.IsPublic)
	require.Len(t, pe.Grants, 1)
	require.Equal(t, rid, pe.Grants[0].RecipientID)
	require.Equal(t, id, pe.Grants[0].EntryID)
	require.Len(t, pe.Grants[0].KeyNonce, 24)
}

func TestFromPublishRequest_Validation(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	good := Grant{RecipientID: uuid.Must(uuid.NewV4()).String(), EncryptedEntryKeyB64: enc([]byte("k")), KeyNonceB64: enc([]byte("n"))}

	cases := map[string]PublishRequest{
		"no grants":     {EncryptedContentB64: enc([]byte("c")), ContentNonceB64: enc([]byte("n"))},
		"bad content":   {EncryptedContentB64: "%%%", ContentNonceB64: enc([]byte("n")), Grants: []Grant{good}},
		"missing nonce": {EncryptedContentB64: enc([]byte("c")), Grants: []Grant{good}},
		"bad recipient": {EncryptedContentB64: enc([]byte("c")), ContentNonceB64: enc([]byte("n")), Grants: []Grant{{RecipientID: "bob", EncryptedEntryKeyB64: good.EncryptedEntryKeyB64, KeyNonceB64: good.KeyNonceB64}}},
		"empty key":     {EncryptedContentB64: enc([]byte("c")), ContentNonceB64: enc([]byte("n")), Grants: []Grant{{RecipientID: good.RecipientID, KeyNonceB64: good.KeyNonceB64}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromPublishRequest(id, req)
			require.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestClientHelpers_RoundTrip(t *testing.T) {
	ew := sampleEntryWithGrant()
	e := ToEntry(ew, true)

	p := PayloadOf(e)
	require.Equal(t, e.EncryptedContent, p.EncryptedContentB64)
	require.Equal(t, e.EncryptionMetadata.ContentNonceB64, p.ContentNonceB64)

	g := KeyGrantOf(e)
	require.Equal(t, enc([]byte{6}), g.EncryptedEntryKeyB64)

	pub, err := AuthorKeyOf(e)
	require.NoError(t, err)
	require.Equal(t, [32]byte{}, pub)

	e.Author.PublicKey = enc([]byte("short"))
	_, err = AuthorKeyOf(e)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestToPublishRequest(t *testing.T) {
	payload := model.EncryptedEntryPayload{EncryptedContentB64: "Yw==", ContentNonceB64: "bg=="}
	grants := []model.EntryKeyGrant{{EncryptedEntryKeyB64: "aw==", KeyNonceB64: "bg=="}}

	_, err := ToPublishRequest(payload, grants, nil, false)
	require.ErrorIs(t, err, errs.ErrValidation)

	req, err := ToPublishRequest(payload, grants, []string{"u1"}, true)
	require.NoError(t, err)
	require.Equal(t, "u1", req.Grants[0].RecipientID)
	require.True(t, req.IsPublic)
}
