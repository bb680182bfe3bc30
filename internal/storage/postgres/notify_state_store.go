package postgres

import (
	"context"
	"fmt"

	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// NotifyStateStore implements storage.NotifyStateStore using PostgreSQL.
// The unique constraint on the key column makes the write-once contract
// hold across concurrent alert processes.
type NotifyStateStore struct {
	pool *Pool
}

// NewNotifyStateStore creates a new NotifyStateStore.
func NewNotifyStateStore(pool *Pool) *NotifyStateStore {
	return &NotifyStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NotifyStateStore = (*NotifyStateStore)(nil)

// Get retrieves the value stored under key. Returns ErrNotFound if absent.
func (s *NotifyStateStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM notify_state WHERE key = $1`

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get notify state: %w", err)
	}
	return value, nil
}

// Put stores value under key. Returns ErrDuplicateKey if the key exists.
func (s *NotifyStateStore) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO notify_state (key, value) VALUES ($1, $2)`

	_, err := s.pool.Exec(ctx, query, key, value)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("put notify state: %w", err)
	}
	return nil
}
