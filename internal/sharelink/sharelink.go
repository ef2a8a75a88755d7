// Package sharelink encodes the capability token carried by share links.
//
// A token holds a raw entry key. Anyone who has it can read that one entry
// without an account, so tokens are bearer secrets: never log them.
package sharelink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/model"
)

// QueryParam is the URL query parameter that carries the token.
const QueryParam = "q"

// Token is an encoded share token. String redacts it so it does not leak
// through fmt or structured logging by accident.
type Token string

func (Token) String() string { return "[redacted share token]" }

// Encode packages decryption material for one entry. The format is
// base64(JSON) with '+'→'-', '/'→'_' and padding stripped; byte slices inside
// the JSON use standard base64.
func Encode(entryID string, rawEntryKey, contentNonce, authorPublicKey []byte) (Token, error) {
	if entryID == "" || len(rawEntryKey) == 0 || len(contentNonce) == 0 || len(authorPublicKey) == 0 {
		return "", fmt.Errorf("%w: empty share material", errs.ErrValidation)
	}
	raw, err := json.Marshal(model.ShareToken{
		EntryID: entryID,
		KeyData: model.ShareKeyData{
			RawEntryKey:     rawEntryKey,
			ContentNonce:    contentNonce,
			AuthorPublicKey: authorPublicKey,
		},
	})
	if err != nil {
		return "", err
	}
	s := base64.StdEncoding.EncodeToString(raw)
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return Token(strings.TrimRight(s, "=")), nil
}

// Decode reverses Encode. Any failure is errs.ErrMalformedToken.
func Decode(tok Token) (*model.ShareToken, error) {
	s := strings.TrimSpace(string(tok))
	if s == "" {
		return nil, errs.ErrMalformedToken
	}
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.ErrMalformedToken
	}
	var st model.ShareToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, errs.ErrMalformedToken
	}
	if st.EntryID == "" || len(st.KeyData.RawEntryKey) == 0 || len(st.KeyData.ContentNonce) == 0 {
		return nil, errs.ErrMalformedToken
	}
	return &st, nil
}

// BuildURL appends ?q=<token> to base, keeping any existing query.
func BuildURL(base string, tok Token) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: share base url: %w", errs.ErrValidation, err)
	}
	q := u.Query()
	q.Set(QueryParam, string(tok))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseURL extracts the token from a share URL. A bare token is accepted too.
func ParseURL(raw string) (Token, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "?") && !strings.Contains(raw, "://") {
		return Token(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errs.ErrMalformedToken
	}
	tok := u.Query().Get(QueryParam)
	if tok == "" {
		return "", errs.ErrMalformedToken
	}
	return Token(tok), nil
}
