// Package file implements a content-addressed file store: one JSON file per
// key, named by the hex digest. Writes go through a temp file and rename so
// readers never observe partial entries.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kailas-cloud/stagegate/internal/store"
)

var keyRegex = regexp.MustCompile(`^[a-f0-9]{16,64}$`)

// Store is a directory-backed KV store.
type Store struct {
	dir string
}

// New creates the backing directory if needed and returns the store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, &store.Error{Op: store.OpGet, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrKeyNotFound
		}
		return nil, &store.Error{Op: store.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key, replacing any existing entry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return &store.Error{Op: store.OpSet, Err: err}
	}
	if err := writeAtomic(path, value); err != nil {
		return &store.Error{Op: store.OpSet, Err: err}
	}
	return nil
}

// SetNX stores a value only when the key is absent. Returns true when this
// call created the entry.
func (s *Store) SetNX(_ context.Context, key string, value []byte) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, &store.Error{Op: store.OpSetNX, Err: err}
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := writeAtomic(path, value); err != nil {
		return false, &store.Error{Op: store.OpSetNX, Err: err}
	}
	return true, nil
}

// path validates the key shape before touching the filesystem. Keys are hex
// digests, so this also blocks traversal.
func (s *Store) path(key string) (string, error) {
	if !keyRegex.MatchString(key) {
		return "", fmt.Errorf("invalid key %q: expected hex digest", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func writeAtomic(path string, value []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
