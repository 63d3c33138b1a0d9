package session

import (
	"context"
	"maps"
	"sync"
)

// MemoryStorage implements Storage using an in-memory map. Entries do not
// survive the process; it backs tests and the "memory" storage mode.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]string),
	}
}

// GetItems returns the stored values for keys.
func (s *MemoryStorage) GetItems(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// SetItems stores all items under one lock.
func (s *MemoryStorage) SetItems(_ context.Context, items map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.items, items)
	return nil
}

// RemoveItems deletes keys under one lock.
func (s *MemoryStorage) RemoveItems(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

// Close is a no-op.
func (*MemoryStorage) Close() error {
	return nil
}

// Verify interface compliance.
var _ Storage = (*MemoryStorage)(nil)
