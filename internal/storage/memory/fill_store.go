package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

type fillKey struct {
	tradeID string
	kind    domain.FillKind
	timeUnix int64
}

// FillStore is an in-memory implementation of storage.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[fillKey]*domain.Fill
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{
		data: make(map[fillKey]*domain.Fill),
	}
}

// InsertBulk adds multiple fills. Fails entire batch on duplicate (trade_id, kind, time).
func (s *FillStore) InsertBulk(_ context.Context, fills []*domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[fillKey]struct{}, len(fills))
	for _, f := range fills {
		if f == nil || f.TradeID == "" || f.Kind == "" {
			return storage.ErrInvalidInput
		}
		k := fillKey{f.TradeID, f.Kind, f.Time.Unix()}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, f := range fills {
		copy := *f
		s.data[fillKey{f.TradeID, f.Kind, f.Time.Unix()}] = &copy
	}
	return nil
}

// GetByTradeID retrieves all fills of a trade, ordered by time ASC.
func (s *FillStore) GetByTradeID(_ context.Context, tradeID string) ([]*domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fills []*domain.Fill
	for _, f := range s.data {
		if f.TradeID == tradeID {
			copy := *f
			fills = append(fills, &copy)
		}
	}

	sort.Slice(fills, func(i, j int) bool {
		if !fills[i].Time.Equal(fills[j].Time) {
			return fills[i].Time.Before(fills[j].Time)
		}
		// Entry sorts ahead of a same-instant exit.
		return fills[i].Kind == domain.FillEntry
	})
	return fills, nil
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)
