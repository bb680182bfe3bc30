package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// SkipStore is an in-memory implementation of storage.SkipStore.
type SkipStore struct {
	mu   sync.RWMutex
	data []domain.SkippedSignal
}

// NewSkipStore creates a new in-memory skip store.
func NewSkipStore() *SkipStore {
	return &SkipStore{}
}

// InsertBulk adds multiple skip records.
func (s *SkipStore) InsertBulk(_ context.Context, skips []*domain.SkippedSignal) error {
	if len(skips) == 0 {
		return nil
	}
	for _, sk := range skips {
		if sk == nil || sk.Reason == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sk := range skips {
		s.data = append(s.data, *sk)
	}
	return nil
}

// GetByRunID retrieves all skip records of a run, ordered by signal time ASC.
func (s *SkipStore) GetByRunID(_ context.Context, runID string) ([]*domain.SkippedSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var skips []*domain.SkippedSignal
	for i := range s.data {
		if s.data[i].RunID == runID {
			copy := s.data[i]
			skips = append(skips, &copy)
		}
	}

	sort.Slice(skips, func(i, j int) bool {
		return skips[i].SignalTime.Before(skips[j].SignalTime)
	})
	return skips, nil
}

// Compile-time interface check.
var _ storage.SkipStore = (*SkipStore)(nil)
