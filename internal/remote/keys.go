package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/and161185/journal-keeper/internal/convert"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// FetchWrappedKey returns the caller's wrapped key. The user is taken from
// the bearer token; userID only labels errors.
func (c *Client) FetchWrappedKey(ctx context.Context, userID string) (*model.WrappedPrivateKey, error) {
	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/v1/keys/wrapped", nil, &raw); err != nil {
		return nil, err
	}
	var wk model.WrappedPrivateKey
	if err := json.Unmarshal(raw, &wk); err != nil {
		return nil, fmt.Errorf("%w: wrapped key of %s: %w", errs.ErrValidation, userID, err)
	}
	return &wk, nil
}

// PutWrappedKey uploads wk once. The local owner field is not sent.
func (c *Client) PutWrappedKey(ctx context.Context, _ string, wk *model.WrappedPrivateKey) error {
	cp := *wk
	cp.UserID = ""
	return c.do(ctx, http.MethodPut, "/v1/keys/wrapped", &cp, nil)
}

// DeleteKeyMaterial removes the caller's grants and wrapped key.
func (c *Client) DeleteKeyMaterial(ctx context.Context, _ string) error {
	return c.do(ctx, http.MethodDelete, "/v1/keys/wrapped", nil, nil)
}

// PurgeGrants removes every grant to or from the caller and returns how many went.
func (c *Client) PurgeGrants(ctx context.Context) (int64, error) {
	var out convert.DeletedGrants
	if err := c.do(ctx, http.MethodDelete, "/v1/grants", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// PublicKey fetches the box public key of userID.
func (c *Client) PublicKey(ctx context.Context, userID string) ([model.PublicKeyLen]byte, error) {
	var pub [model.PublicKeyLen]byte
	var out convert.PublicKey
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/public-key", nil, &out); err != nil {
		return pub, err
	}
	b, err := b64.DecodeString(out.PublicKeyB64)
	if err != nil || len(b) != model.PublicKeyLen {
		return pub, fmt.Errorf("%w: public key of %s", errs.ErrValidation, userID)
	}
	copy(pub[:], b)
	return pub, nil
}
