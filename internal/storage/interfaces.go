package storage

import (
	"context"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// BarStore provides access to the OHLC candle cache.
type BarStore interface {
	// InsertBulk adds multiple bars for one instrument/timeframe. Fails
	// the entire batch on a duplicate (instrument, timeframe, start).
	InsertBulk(ctx context.Context, instrument string, tf domain.Timeframe, bars []domain.Bar) error

	// GetByTimeRange retrieves bars with Start within [start, end]
	// (inclusive), ordered by Start ASC.
	GetByTimeRange(ctx context.Context, instrument string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error)

	// GetLatest retrieves the most recent limit bars, ordered by Start ASC.
	GetLatest(ctx context.Context, instrument string, tf domain.Timeframe, limit int) ([]domain.Bar, error)
}

// TradeStore provides access to trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	// The trade is returned without its fills; see FillStore.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades of a run, ordered by entry time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)

	// GetByInstrument retrieves all trades for an instrument, ordered by entry time ASC.
	GetByInstrument(ctx context.Context, instrument string) ([]*domain.Trade, error)
}

// FillStore provides access to per-trade execution records.
type FillStore interface {
	// InsertBulk adds multiple fills. Fails entire batch on duplicate
	// (trade_id, kind, time).
	InsertBulk(ctx context.Context, fills []*domain.Fill) error

	// GetByTradeID retrieves all fills of a trade, ordered by time ASC.
	GetByTradeID(ctx context.Context, tradeID string) ([]*domain.Fill, error)
}

// EquityStore provides access to the per-run equity series.
type EquityStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, time).
	InsertBulk(ctx context.Context, points []*domain.EquityPoint) error

	// GetByRunID retrieves all points of a run, ordered by time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.EquityPoint, error)
}

// SkipStore provides access to vetoed-signal records.
type SkipStore interface {
	// InsertBulk adds multiple skip records. The batch fails as a whole
	// on any insert error.
	InsertBulk(ctx context.Context, skips []*domain.SkippedSignal) error

	// GetByRunID retrieves all skip records of a run, ordered by signal time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SkippedSignal, error)
}

// NotifyStateStore persists alert-delivery state so that restarting the
// live advisory process never re-sends a notification. Keys are opaque
// to the store; the notifier derives them from signal identity.
type NotifyStateStore interface {
	// Get retrieves the value stored under key. Returns ErrNotFound if
	// the key has never been put.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. Returns ErrDuplicateKey if the key
	// already exists; delivery state is write-once.
	Put(ctx context.Context, key, value string) error
}
