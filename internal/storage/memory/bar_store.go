package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

type seriesKey struct {
	instrument string
	tf         domain.Timeframe
}

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[seriesKey]map[int64]domain.Bar // inner map keyed by Start unix
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[seriesKey]map[int64]domain.Bar),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate (instrument, timeframe, start).
func (s *BarStore) InsertBulk(_ context.Context, instrument string, tf domain.Timeframe, bars []domain.Bar) error {
	if instrument == "" || tf.Duration() == 0 {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{instrument, tf}
	series := s.data[key]

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b.Start.IsZero() {
			return storage.ErrInvalidInput
		}
		ts := b.Start.Unix()
		if _, exists := series[ts]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[ts]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[ts] = struct{}{}
	}

	if series == nil {
		series = make(map[int64]domain.Bar, len(bars))
		s.data[key] = series
	}
	for _, b := range bars {
		series[b.Start.Unix()] = b
	}
	return nil
}

// GetByTimeRange retrieves bars with Start within [start, end] (inclusive), ordered by Start ASC.
func (s *BarStore) GetByTimeRange(_ context.Context, instrument string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bars []domain.Bar
	for _, b := range s.data[seriesKey{instrument, tf}] {
		if b.Start.Before(start) || b.Start.After(end) {
			continue
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Start.Before(bars[j].Start)
	})
	return bars, nil
}

// GetLatest retrieves the most recent limit bars, ordered by Start ASC.
func (s *BarStore) GetLatest(_ context.Context, instrument string, tf domain.Timeframe, limit int) ([]domain.Bar, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var bars []domain.Bar
	for _, b := range s.data[seriesKey{instrument, tf}] {
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Start.Before(bars[j].Start)
	})
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)
