package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/journal-keeper/internal/e2e"
	"github.com/and161185/journal-keeper/internal/errs"
	"github.com/and161185/journal-keeper/internal/service"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(t.TempDir())
	return filepath.Join(dir, "journal-keeper")
}

func withPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("unexpected prompt")
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func issue(t *testing.T, ttl time.Duration) (string, string) {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	tok, _, err := service.NewTokens([]byte("k"), ttl).Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok, id.String()
}

func Test_token_SaveLoad(t *testing.T) {
	dir := withTmpConfig(t)

	if _, err := loadToken(dir); !errors.Is(err, errNoLogin) {
		t.Fatalf("want errNoLogin, got %v", err)
	}
	tok, id := issue(t, time.Hour)
	info, err := saveToken(dir, tok)
	if err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	if info.UserID != id {
		t.Fatalf("user id %q, want %q", info.UserID, id)
	}
	fi, err := os.Stat(tokenPath(dir))
	if err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode: %v %v", fi, err)
	}
	got, err := loadToken(dir)
	if err != nil || got != tok {
		t.Fatalf("loadToken: tok=%q err=%v", got, err)
	}

	expired, _ := issue(t, -time.Hour)
	if _, err := saveToken(dir, expired); err == nil {
		t.Fatalf("want error for expired token")
	}
	if _, err := saveToken(dir, "garbage"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for garbage, got %v", err)
	}

	b, _ := json.Marshal(tokenFile{AccessToken: "x", ExpiresAt: time.Now().Add(-time.Minute)})
	if err := os.WriteFile(tokenPath(dir), b, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadToken(dir); err == nil || errors.Is(err, errNoLogin) {
		t.Fatalf("want expiry error, got %v", err)
	}

	if err := removeToken(dir); err != nil {
		t.Fatalf("removeToken: %v", err)
	}
	if err := removeToken(dir); err != nil {
		t.Fatalf("removeToken twice: %v", err)
	}
}

func Test_readContent(t *testing.T) {
	b, err := readContent(strings.NewReader("hello"), "-")
	if err != nil || string(b) != "hello" {
		t.Fatalf("stdin: %q %v", b, err)
	}
	p := filepath.Join(t.TempDir(), "c.txt")
	if err := os.WriteFile(p, []byte("from file"), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err = readContent(strings.NewReader("ignored"), p)
	if err != nil || string(b) != "from file" {
		t.Fatalf("file: %q %v", b, err)
	}
	if _, err := readContent(strings.NewReader("  \n"), "-"); err == nil {
		t.Fatalf("want error for empty content")
	}
}

func Test_fail_Hints(t *testing.T) {
	cases := map[error]string{
		errs.ErrAuthentication:                     "wrong password",
		errs.ErrRateLimited:                        "try again later",
		errs.ErrNotUnlocked:                        "jk signup",
		&e2e.SyncError{Err: errors.New("offline")}: "backend copy",
		errors.New("plain"):                        "plain",
	}
	for err, want := range cases {
		if got := fail(err); !strings.Contains(got, want) {
			t.Fatalf("fail(%v) = %q, want substring %q", err, got, want)
		}
	}
}

func Test_strength(t *testing.T) {
	withTmpConfig(t)
	out, err := run(t, "", "strength", "password")
	if err != nil || !strings.Contains(out, "very weak") {
		t.Fatalf("strength: %q %v", out, err)
	}
	withPasswords(t, "Correct-Horse-Battery-9")
	out, err = run(t, "", "strength")
	if err != nil || !strings.Contains(out, "strong") {
		t.Fatalf("strength prompt: %q %v", out, err)
	}
}

func Test_login_status_logout(t *testing.T) {
	withTmpConfig(t)
	tok, id := issue(t, time.Hour)

	out, err := run(t, "", "login", "--token", tok)
	if err != nil || !strings.Contains(out, id) {
		t.Fatalf("login: %q %v", out, err)
	}
	out, err = run(t, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{id, "no_keys", "biometric:  off", "0 entries"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output %q missing %q", out, want)
		}
	}
	if _, err := run(t, "", "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, _ = run(t, "", "status")
	if !strings.Contains(out, "not logged in") {
		t.Fatalf("status after logout: %q", out)
	}
}

func Test_signup_NeedsLogin(t *testing.T) {
	withTmpConfig(t)
	if _, err := run(t, "", "signup"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("want login error, got %v", err)
	}
}

func Test_reset_NeedsConfirmation(t *testing.T) {
	withTmpConfig(t)
	if _, err := run(t, "", "reset", "--confirm", "yes"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func Test_local_EncryptListDecrypt(t *testing.T) {
	withTmpConfig(t)

	withPasswords(t, "pw-1", "pw-1")
	out, err := run(t, "dear diary", "local", "encrypt", "note")
	if err != nil || !strings.Contains(out, "saved note") {
		t.Fatalf("encrypt: %q %v", out, err)
	}

	out, err = run(t, "", "local", "list")
	if err != nil || strings.TrimSpace(out) != "note" {
		t.Fatalf("list: %q %v", out, err)
	}

	withPasswords(t, "pw-1")
	out, err = run(t, "", "local", "decrypt", "note")
	if err != nil || strings.TrimSpace(out) != "dear diary" {
		t.Fatalf("decrypt: %q %v", out, err)
	}

	withPasswords(t, "wrong")
	if _, err := run(t, "", "local", "decrypt", "note"); !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("want ErrAuthentication, got %v", err)
	}

	withPasswords(t, "pw-1")
	out, err = run(t, "", "local", "unlock-all")
	if err != nil || !strings.Contains(out, "1 entry unlocked") {
		t.Fatalf("unlock-all: %q %v", out, err)
	}

	withPasswords(t, "a", "b")
	if _, err := run(t, "x", "local", "encrypt", "other"); err == nil {
		t.Fatalf("want mismatch error")
	}
}

func Test_biometric_Unavailable(t *testing.T) {
	withTmpConfig(t)
	out, err := run(t, "", "biometric", "status")
	if err != nil || !strings.Contains(out, "available: off") {
		t.Fatalf("biometric status: %q %v", out, err)
	}
}
