package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

type equityKey struct {
	runID    string
	timeUnix int64
}

// EquityStore is an in-memory implementation of storage.EquityStore.
type EquityStore struct {
	mu   sync.RWMutex
	data map[equityKey]*domain.EquityPoint
}

// NewEquityStore creates a new in-memory equity store.
func NewEquityStore() *EquityStore {
	return &EquityStore{
		data: make(map[equityKey]*domain.EquityPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, time).
func (s *EquityStore) InsertBulk(_ context.Context, points []*domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[equityKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := equityKey{p.RunID, p.Time.Unix()}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		copy := *p
		s.data[equityKey{p.RunID, p.Time.Unix()}] = &copy
	}
	return nil
}

// GetByRunID retrieves all points of a run, ordered by time ASC.
func (s *EquityStore) GetByRunID(_ context.Context, runID string) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []*domain.EquityPoint
	for _, p := range s.data {
		if p.RunID == runID {
			copy := *p
			points = append(points, &copy)
		}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points, nil
}

// Compile-time interface check.
var _ storage.EquityStore = (*EquityStore)(nil)
