package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/metrics"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// Generator produces run reports from stored data.
type Generator struct {
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore
	skipStore   storage.SkipStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	tradeStore storage.TradeStore,
	equityStore storage.EquityStore,
	skipStore storage.SkipStore,
) *Generator {
	return &Generator{
		tradeStore:  tradeStore,
		equityStore: equityStore,
		skipStore:   skipStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the full report of one run. A run with no closed
// trades still reports its skips; the summary is then zero-valued.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	equity, err := g.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load equity: %w", err)
	}

	skips, err := g.skipStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load skips: %w", err)
	}

	var closed []*domain.Trade
	open := 0
	for _, t := range trades {
		if t.Closed() {
			closed = append(closed, t)
		} else {
			open++
		}
	}

	r := &Report{
		GeneratedAt: g.now(),
		RunID:       runID,
		Summary:     metrics.Compute(closed, equity),
		Trades:      tradeRows(trades),
		SkipCounts:  skipCounts(skips),
		OpenTrades:  open,
	}
	r.Summary.RunID = runID
	if len(trades) > 0 {
		r.Instrument = trades[0].Instrument
	}

	return r, nil
}

// tradeRows flattens stored trades into report rows, entry time ASC.
func tradeRows(trades []*domain.Trade) []TradeRow {
	rows := make([]TradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, TradeRow{
			TradeID:     t.TradeID,
			Direction:   string(t.Direction),
			Pattern:     t.Pattern,
			EntryTime:   t.EntryTime,
			EntryMid:    t.EntryMidPrice,
			EntryExec:   t.EntryExecPrice,
			Units:       t.Units,
			StopMid:     t.InitialStopMid,
			TP1Price:    t.TP1Price,
			TP2Price:    t.TP2Price,
			TP2Source:   t.TP2Source,
			CloseTime:   t.CloseTime,
			CloseReason: t.CloseReason,
			PnLGross:    t.TotalPnLGross,
			PnLNet:      t.TotalPnLNet,
			Costs:       t.TotalCost,
			HoldHours:   t.HoldingHours,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].EntryTime.Equal(rows[j].EntryTime) {
			return rows[i].EntryTime.Before(rows[j].EntryTime)
		}
		return rows[i].TradeID < rows[j].TradeID
	})
	return rows
}

// skipCounts tallies skips by reason, sorted by reason for deterministic output.
func skipCounts(skips []*domain.SkippedSignal) []SkipCountRow {
	counts := make(map[string]int)
	for _, s := range skips {
		counts[string(s.Reason)]++
	}

	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)

	rows := make([]SkipCountRow, 0, len(reasons))
	for _, r := range reasons {
		rows = append(rows, SkipCountRow{Reason: r, Count: counts[r]})
	}
	return rows
}
