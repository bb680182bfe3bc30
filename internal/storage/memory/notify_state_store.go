package memory

import (
	"context"
	"sync"

	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// NotifyStateStore is an in-memory implementation of storage.NotifyStateStore.
// State is lost on restart; use the postgres implementation when delivery
// dedup must survive process restarts.
type NotifyStateStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewNotifyStateStore creates a new in-memory notify state store.
func NewNotifyStateStore() *NotifyStateStore {
	return &NotifyStateStore{
		data: make(map[string]string),
	}
}

// Get retrieves the value stored under key. Returns ErrNotFound if absent.
func (s *NotifyStateStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Put stores value under key. Returns ErrDuplicateKey if the key exists.
func (s *NotifyStateStore) Put(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[key] = value
	return nil
}

// Compile-time interface check.
var _ storage.NotifyStateStore = (*NotifyStateStore)(nil)
