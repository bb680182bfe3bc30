package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (instrument, timeframe, start).
func (s *BarStore) InsertBulk(ctx context.Context, instrument string, tf domain.Timeframe, bars []domain.Bar) error {
	if instrument == "" || tf.Duration() == 0 {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		ts := b.Start.Unix()
		if _, exists := seen[ts]; exists {
			return storage.ErrDuplicateKey
		}
		seen[ts] = struct{}{}
	}

	// Check for duplicates against existing DB rows. MergeTree does not
	// enforce uniqueness at insert time.
	for _, b := range bars {
		exists, err := s.exists(ctx, instrument, tf, b.Start)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			instrument, timeframe, start_time, open, high, low, close
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			instrument, string(tf), b.Start.UTC(),
			b.Open, b.High, b.Low, b.Close,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves bars with start within [start, end] (inclusive),
// ordered by start ASC.
func (s *BarStore) GetByTimeRange(ctx context.Context, instrument string, tf domain.Timeframe, start, end time.Time) ([]domain.Bar, error) {
	query := `
		SELECT start_time, open, high, low, close
		FROM bars FINAL
		WHERE instrument = ? AND timeframe = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time ASC
	`

	rows, err := s.conn.Query(ctx, query, instrument, string(tf), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetLatest retrieves the most recent limit bars, ordered by start ASC.
func (s *BarStore) GetLatest(ctx context.Context, instrument string, tf domain.Timeframe, limit int) ([]domain.Bar, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	// Newest-first with LIMIT, then reverse into ascending order.
	query := `
		SELECT start_time, open, high, low, close
		FROM bars FINAL
		WHERE instrument = ? AND timeframe = ?
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, instrument, string(tf), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query latest bars: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// exists checks if a bar with the given key exists.
func (s *BarStore) exists(ctx context.Context, instrument string, tf domain.Timeframe, start time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE instrument = ? AND timeframe = ? AND start_time = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, instrument, string(tf), start.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBars scans multiple rows.
func scanBars(rows driver.Rows) ([]domain.Bar, error) {
	var bars []domain.Bar

	for rows.Next() {
		var b domain.Bar
		if err := rows.Scan(&b.Start, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		b.Start = b.Start.UTC()
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
