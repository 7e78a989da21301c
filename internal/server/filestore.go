// Package server persists shared file uploads in a flat directory keyed by
// file id.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by FileStore.Get when no stored file matches the
// requested id.
var ErrNotFound = errors.New("file not found")

// FileStore is a flat, append-only namespace of uploaded files backed by a
// single directory. Ids are validated by the connection handler before they
// reach the store; the store itself never builds nested paths.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating file store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Put writes the payload under the given id. An existing entry with the same
// id is overwritten; with timestamp-prefixed ids a collision means two
// uploads of the same filename within one second, and last write wins.
func (s *FileStore) Put(fileID string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, fileID), data, 0o600); err != nil {
		return fmt.Errorf("storing file %q: %w", fileID, err)
	}
	return nil
}

// Get returns the stored payload for the given id, or ErrNotFound if no such
// entry exists.
func (s *FileStore) Get(fileID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fileID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading file %q: %w", fileID, err)
	}
	return data, nil
}
