package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// SkipStore implements storage.SkipStore using PostgreSQL.
type SkipStore struct {
	pool *Pool
}

// NewSkipStore creates a new SkipStore.
func NewSkipStore(pool *Pool) *SkipStore {
	return &SkipStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SkipStore = (*SkipStore)(nil)

// InsertBulk adds multiple skip records atomically.
func (s *SkipStore) InsertBulk(ctx context.Context, skips []*domain.SkippedSignal) error {
	if len(skips) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO skipped_signals (
			run_id, instrument, direction, signal_time, entry_time, reason, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, sk := range skips {
		// A signal vetoed before any entry attempt has no entry time.
		var entryTime *time.Time
		if !sk.EntryTime.IsZero() {
			entryTime = &sk.EntryTime
		}
		_, err := tx.Exec(ctx, query,
			sk.RunID, sk.Instrument, string(sk.Direction), sk.SignalTime,
			entryTime, string(sk.Reason), sk.Detail,
		)
		if err != nil {
			return fmt.Errorf("insert skipped signal in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all skip records of a run, ordered by signal time ASC.
func (s *SkipStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SkippedSignal, error) {
	query := `
		SELECT run_id, instrument, direction, signal_time, entry_time, reason, detail
		FROM skipped_signals
		WHERE run_id = $1
		ORDER BY signal_time ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get skipped signals by run id: %w", err)
	}
	defer rows.Close()

	var skips []*domain.SkippedSignal
	for rows.Next() {
		var sk domain.SkippedSignal
		var direction, reason string
		var entryTime *time.Time

		err := rows.Scan(&sk.RunID, &sk.Instrument, &direction, &sk.SignalTime,
			&entryTime, &reason, &sk.Detail)
		if err != nil {
			return nil, fmt.Errorf("scan skipped signal row: %w", err)
		}

		sk.Direction = domain.Direction(direction)
		sk.Reason = domain.SkipReason(reason)
		sk.SignalTime = sk.SignalTime.UTC()
		if entryTime != nil {
			sk.EntryTime = entryTime.UTC()
		}
		skips = append(skips, &sk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skipped signal rows: %w", err)
	}

	return skips, nil
}
