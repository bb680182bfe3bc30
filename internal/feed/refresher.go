package feed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// CandleSource fetches confirmed bars, newest last.
type CandleSource interface {
	Candles(ctx context.Context, instrument string, tf domain.Timeframe, count int) ([]domain.Bar, error)
}

// Refresher tops up a bar cache from a candle source. Fetched bars at
// or before the cache's latest bar are dropped, so overlapping fetch
// windows never trip the store's duplicate detection.
type Refresher struct {
	source CandleSource
	store  storage.BarStore
	logger *log.Logger
}

// NewRefresher creates a Refresher. A nil logger falls back to the
// default logger.
func NewRefresher(source CandleSource, store storage.BarStore, logger *log.Logger) *Refresher {
	if logger == nil {
		logger = log.Default()
	}
	return &Refresher{
		source: source,
		store:  store,
		logger: logger,
	}
}

// Refresh fetches the latest count bars and inserts those newer than
// the cache's latest. Returns the number of bars inserted.
func (r *Refresher) Refresh(ctx context.Context, instrument string, tf domain.Timeframe, count int) (int, error) {
	fetched, err := r.source.Candles(ctx, instrument, tf, count)
	if err != nil {
		return 0, fmt.Errorf("fetch candles: %w", err)
	}

	var latest time.Time
	have, err := r.store.GetLatest(ctx, instrument, tf, 1)
	if err != nil {
		return 0, fmt.Errorf("read cache: %w", err)
	}
	if len(have) > 0 {
		latest = have[0].Start
	}

	fresh := make([]domain.Bar, 0, len(fetched))
	for _, b := range fetched {
		if !b.Start.After(latest) {
			continue
		}
		fresh = append(fresh, b)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	if err := r.store.InsertBulk(ctx, instrument, tf, fresh); err != nil {
		return 0, fmt.Errorf("insert bars: %w", err)
	}

	r.logger.Printf("[feed] refreshed %s %s: %d new bars through %s",
		instrument, tf, len(fresh), fresh[len(fresh)-1].Start.Format(time.RFC3339))
	return len(fresh), nil
}
