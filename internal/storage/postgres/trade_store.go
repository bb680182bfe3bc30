package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, instrument, direction, pattern,
	entry_time, entry_mid_price, entry_exec_price, units,
	initial_stop_mid, initial_stop_exec, initial_risk_per_unit, initial_risk,
	tp1_price, tp2_price, tp2_source, tp1_units,
	current_stop, tp1_filled, remaining_units,
	close_time, close_reason,
	total_pnl_gross, total_pnl_net, total_cost, holding_hours
`

const tradeInsertQuery = `
	INSERT INTO trades (` + tradeColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17,
		$18, $19, $20,
		$21, $22,
		$23, $24, $25, $26
	)
`

func tradeInsertArgs(t *domain.Trade) []any {
	// Open trades persist with a NULL close_time.
	var closeTime *time.Time
	if !t.CloseTime.IsZero() {
		closeTime = &t.CloseTime
	}
	return []any{
		t.TradeID, t.RunID, t.Instrument, string(t.Direction), t.Pattern,
		t.EntryTime, t.EntryMidPrice, t.EntryExecPrice, t.Units,
		t.InitialStopMid, t.InitialStopExec, t.InitialRiskPerUnit, t.InitialRisk,
		t.TP1Price, t.TP2Price, t.TP2Source, t.TP1Units,
		t.CurrentStop, t.TP1Filled, t.RemainingUnits,
		closeTime, t.CloseReason,
		t.TotalPnLGross, t.TotalPnLNet, t.TotalCost, t.HoldingHours,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	_, err := s.pool.Exec(ctx, tradeInsertQuery, tradeInsertArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		_, err := tx.Exec(ctx, tradeInsertQuery, tradeInsertArgs(t)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run, ordered by entry time ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE run_id = $1
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByInstrument retrieves all trades for an instrument, ordered by entry time ASC.
func (s *TradeStore) GetByInstrument(ctx context.Context, instrument string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE instrument = $1
		ORDER BY entry_time ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("get trades by instrument: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single row.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var direction string
	var closeTime *time.Time

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.Instrument, &direction, &t.Pattern,
		&t.EntryTime, &t.EntryMidPrice, &t.EntryExecPrice, &t.Units,
		&t.InitialStopMid, &t.InitialStopExec, &t.InitialRiskPerUnit, &t.InitialRisk,
		&t.TP1Price, &t.TP2Price, &t.TP2Source, &t.TP1Units,
		&t.CurrentStop, &t.TP1Filled, &t.RemainingUnits,
		&closeTime, &t.CloseReason,
		&t.TotalPnLGross, &t.TotalPnLNet, &t.TotalCost, &t.HoldingHours,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.Direction(direction)
	if closeTime != nil {
		t.CloseTime = closeTime.UTC()
	}
	t.EntryTime = t.EntryTime.UTC()
	return &t, nil
}

// scanTrades scans multiple rows.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
