package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// FillStore implements storage.FillStore using PostgreSQL.
type FillStore struct {
	pool *Pool
}

// NewFillStore creates a new FillStore.
func NewFillStore(pool *Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

const fillColumns = `
	trade_id, instrument, direction, kind, fill_time,
	mid_price, exec_price, units,
	spread_pips, slippage_pips, spread_cost, slippage_cost, swap,
	pnl_gross, pnl_net
`

// InsertBulk adds multiple fills atomically. Fails entire batch on duplicate
// (trade_id, kind, fill_time).
func (s *FillStore) InsertBulk(ctx context.Context, fills []*domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO fills (` + fillColumns + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15
		)
	`

	for _, f := range fills {
		_, err := tx.Exec(ctx, query,
			f.TradeID, f.Instrument, string(f.Direction), string(f.Kind), f.Time,
			f.MidPrice, f.ExecPrice, f.Units,
			f.SpreadPips, f.SlippagePips, f.SpreadCost, f.SlippageCost, f.Swap,
			f.PnLGross, f.PnLNet,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert fill in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTradeID retrieves all fills of a trade, ordered by time ASC with
// the entry fill ahead of a same-instant exit.
func (s *FillStore) GetByTradeID(ctx context.Context, tradeID string) ([]*domain.Fill, error) {
	query := `
		SELECT ` + fillColumns + `
		FROM fills
		WHERE trade_id = $1
		ORDER BY fill_time ASC, (kind <> 'ENTRY') ASC
	`

	rows, err := s.pool.Query(ctx, query, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get fills by trade id: %w", err)
	}
	defer rows.Close()

	return scanFills(rows)
}

// scanFills scans multiple rows.
func scanFills(rows pgx.Rows) ([]*domain.Fill, error) {
	var fills []*domain.Fill

	for rows.Next() {
		var f domain.Fill
		var direction, kind string

		err := rows.Scan(
			&f.TradeID, &f.Instrument, &direction, &kind, &f.Time,
			&f.MidPrice, &f.ExecPrice, &f.Units,
			&f.SpreadPips, &f.SlippagePips, &f.SpreadCost, &f.SlippageCost, &f.Swap,
			&f.PnLGross, &f.PnLNet,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}

		f.Direction = domain.Direction(direction)
		f.Kind = domain.FillKind(kind)
		f.Time = f.Time.UTC()
		fills = append(fills, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
