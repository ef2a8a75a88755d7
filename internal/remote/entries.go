package remote

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/and161185/journal-keeper/internal/convert"
)

var b64 = base64.StdEncoding

func entryPath(id string) string { return "/v1/entries/" + url.PathEscape(id) }

func grantPath(entryID, recipientID string) string {
	return entryPath(entryID) + "/grants/" + url.PathEscape(recipientID)
}

// Publish creates or replaces entry id with its full grant set.
func (c *Client) Publish(ctx context.Context, id string, req convert.PublishRequest) error {
	return c.do(ctx, http.MethodPut, entryPath(id), req, nil)
}

// Unpublish deletes entry id and its grants.
func (c *Client) Unpublish(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entryPath(id), nil, nil)
}

// Entry fetches entry id with the grant addressed to the caller.
func (c *Client) Entry(ctx context.Context, id string) (*convert.Entry, error) {
	var e convert.Entry
	if err := c.do(ctx, http.MethodGet, entryPath(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// PublicEntry fetches a public entry without authentication.
func (c *Client) PublicEntry(ctx context.Context, id string) (*convert.Entry, error) {
	var e convert.Entry
	if err := c.do(ctx, http.MethodGet, "/v1/entries/public/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// SharedWithMe lists entries other authors granted to the caller.
func (c *Client) SharedWithMe(ctx context.Context) ([]convert.Entry, error) {
	var out convert.SharedEntries
	if err := c.do(ctx, http.MethodGet, "/v1/entries/shared-with-me", nil, &out); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		return []convert.Entry{}, nil
	}
	return out.Entries, nil
}

// PutGrant adds or replaces the grant of recipientID on entryID.
func (c *Client) PutGrant(ctx context.Context, entryID, recipientID string, req convert.PutGrantRequest) error {
	return c.do(ctx, http.MethodPut, grantPath(entryID, recipientID), req, nil)
}

// RevokeGrant drops the grant of recipientID on entryID.
func (c *Client) RevokeGrant(ctx context.Context, entryID, recipientID string) error {
	return c.do(ctx, http.MethodDelete, grantPath(entryID, recipientID), nil, nil)
}
