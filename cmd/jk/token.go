package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/journal-keeper/internal/remote"
)

var errNoLogin = errors.New("no saved login")

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func tokenPath(dir string) string { return filepath.Join(dir, "token.json") }

// saveToken stores tok after reading its subject and expiry.
func saveToken(dir, tok string) (remote.TokenInfo, error) {
	info, err := remote.InspectToken(tok)
	if err != nil {
		return info, err
	}
	if info.Expired(time.Now()) {
		return info, fmt.Errorf("token expired at %s", info.ExpiresAt.Format(time.RFC3339))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return info, err
	}
	f, err := os.OpenFile(tokenPath(dir), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return info, err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return info, enc.Encode(tokenFile{AccessToken: tok, UserID: info.UserID, ExpiresAt: info.ExpiresAt})
}

// loadToken returns the saved token, or errNoLogin when there is none.
func loadToken(dir string) (string, error) {
	b, err := os.ReadFile(tokenPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return "", errNoLogin
	}
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" {
		return "", errNoLogin
	}
	if !tf.ExpiresAt.IsZero() && time.Now().After(tf.ExpiresAt) {
		return "", errors.New("saved token expired; run: jk login --token <token>")
	}
	return tf.AccessToken, nil
}

func removeToken(dir string) error {
	err := os.Remove(tokenPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
