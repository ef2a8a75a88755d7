// Package filestore is the local key-value store: one file per blob under a
// private directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/and161185/journal-keeper/internal/errs"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store keeps blobs as files in Dir (mode 0700, files 0600).
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store { return &Store{Dir: dir} }

// DefaultDir is $XDG_CONFIG_HOME/journal-keeper or ~/.config/journal-keeper.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "journal-keeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "journal-keeper")
}

func (s *Store) path(name string) (string, error) {
	if !validName.MatchString(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: blob name %q", errs.ErrValidation, name)
	}
	return filepath.Join(s.Dir, name+".json"), nil
}

// Get reads a blob. Missing blobs yield errs.ErrNotFound.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	return b, err
}

// Put writes a blob atomically through a temp file and rename.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete removes a blob. Missing blobs yield errs.ErrNotFound.
func (s *Store) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return errs.ErrNotFound
	}
	return err
}

// List returns the names of stored blobs that start with prefix, sorted.
// A missing directory is an empty store.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	des, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, de := range des {
		n, ok := strings.CutSuffix(de.Name(), ".json")
		if !ok || de.IsDir() || !strings.HasPrefix(n, prefix) || !validName.MatchString(n) {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
