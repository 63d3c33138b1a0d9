package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	fileStoragePerm = 0o600
	fileStorageDir  = 0o700
)

// FileStorage implements Storage as a single YAML document on disk. Every
// write replaces the file through a rename so readers never observe a
// partially written session.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a storage backed by the YAML file at path. The file
// and its directory are created on first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (s *FileStorage) Path() string {
	return s.path
}

// GetItems returns the stored values for keys.
func (s *FileStorage) GetItems(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// SetItems merges items into the document and rewrites it.
func (s *FileStorage) SetItems(_ context.Context, items map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	maps.Copy(doc, items)
	return s.write(doc)
}

// RemoveItems deletes keys from the document and rewrites it.
func (s *FileStorage) RemoveItems(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(doc, k)
	}
	return s.write(doc)
}

// Close is a no-op; the file is not held open between calls.
func (*FileStorage) Close() error {
	return nil
}

func (s *FileStorage) read() (map[string]string, error) {
	// #nosec G304 -- path comes from the user's own config
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	doc := make(map[string]string)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	return doc, nil
}

func (s *FileStorage) write(doc map[string]string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, fileStorageDir); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp session file: %w", err)
	}
	if err := tmp.Chmod(fileStoragePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ Storage = (*FileStorage)(nil)
