package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// ErrNoTrades is returned when no closed trades are available to summarize.
var ErrNoTrades = errors.New("no closed trades to summarize")

// Aggregator computes run summaries from stored trades and equity series.
type Aggregator struct {
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeStore, equityStore storage.EquityStore) *Aggregator {
	return &Aggregator{
		tradeStore:  tradeStore,
		equityStore: equityStore,
	}
}

// ComputeRun loads a run's trades and equity curve and summarizes them.
// Open trades (no close reason yet) are excluded from the figures.
// Returns ErrNoTrades if the run has no closed trades.
func (a *Aggregator) ComputeRun(ctx context.Context, runID string) (*Summary, error) {
	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	closed := filterClosed(trades)
	if len(closed) == 0 {
		return nil, ErrNoTrades
	}

	equity, err := a.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load equity for run %s: %w", runID, err)
	}

	s := Compute(closed, equity)
	s.RunID = runID
	return s, nil
}

// ComputeInstrument summarizes all closed trades of one instrument
// across runs. The equity curves of different runs are not comparable,
// so the drawdown falls back to cumulative PnL.
func (a *Aggregator) ComputeInstrument(ctx context.Context, instrument string) (*Summary, error) {
	trades, err := a.tradeStore.GetByInstrument(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", instrument, err)
	}

	closed := filterClosed(trades)
	if len(closed) == 0 {
		return nil, ErrNoTrades
	}

	s := Compute(closed, nil)
	s.Instrument = instrument
	return s, nil
}

func filterClosed(trades []*domain.Trade) []*domain.Trade {
	var closed []*domain.Trade
	for _, t := range trades {
		if t.Closed() {
			closed = append(closed, t)
		}
	}
	return closed
}
