package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/memory"
)

func TestAggregator_ComputeRun(t *testing.T) {
	ctx := context.Background()
	tradeStore := memory.NewTradeStore()
	equityStore := memory.NewEquityStore()

	base := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	if err := tradeStore.InsertBulk(ctx, []*domain.Trade{
		closedTrade("t1", base, 300, domain.CloseReasonTP2),
		closedTrade("t2", base.Add(24*time.Hour), -100, domain.CloseReasonStop),
	}); err != nil {
		t.Fatalf("seed trades: %v", err)
	}
	if err := equityStore.InsertBulk(ctx, []*domain.EquityPoint{
		{RunID: "run-1", Time: base, Equity: 10000},
		{RunID: "run-1", Time: base.Add(32 * time.Hour), Equity: 10300},
		{RunID: "run-1", Time: base.Add(56 * time.Hour), Equity: 10200},
	}); err != nil {
		t.Fatalf("seed equity: %v", err)
	}

	agg := NewAggregator(tradeStore, equityStore)

	s, err := agg.ComputeRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ComputeRun failed: %v", err)
	}

	if s.TotalTrades != 2 || s.Wins != 1 {
		t.Errorf("expected 2 trades 1 win, got %d/%d", s.TotalTrades, s.Wins)
	}
	if math.Abs(s.NetPnL-200) > 1e-9 {
		t.Errorf("expected net 200, got %f", s.NetPnL)
	}
	if math.Abs(s.MaxDrawdown-100) > 1e-9 {
		t.Errorf("expected drawdown 100 from equity curve, got %f", s.MaxDrawdown)
	}
}

func TestAggregator_ExcludesOpenTrades(t *testing.T) {
	ctx := context.Background()
	tradeStore := memory.NewTradeStore()
	equityStore := memory.NewEquityStore()

	base := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	open := &domain.Trade{
		TradeID:     "t-open",
		RunID:       "run-1",
		Instrument:  "USD/JPY",
		EntryTime:   base.Add(48 * time.Hour),
		TotalPnLNet: -10,
	}
	if err := tradeStore.InsertBulk(ctx, []*domain.Trade{
		closedTrade("t1", base, 300, domain.CloseReasonTP2),
		open,
	}); err != nil {
		t.Fatalf("seed trades: %v", err)
	}

	agg := NewAggregator(tradeStore, equityStore)

	s, err := agg.ComputeRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ComputeRun failed: %v", err)
	}

	if s.TotalTrades != 1 {
		t.Errorf("expected the open trade excluded, got %d trades", s.TotalTrades)
	}
}

func TestAggregator_NoTrades(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(memory.NewTradeStore(), memory.NewEquityStore())

	_, err := agg.ComputeRun(ctx, "missing-run")
	if !errors.Is(err, ErrNoTrades) {
		t.Errorf("expected ErrNoTrades, got %v", err)
	}
}

func TestAggregator_ComputeInstrument(t *testing.T) {
	ctx := context.Background()
	tradeStore := memory.NewTradeStore()

	base := time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC)
	t1 := closedTrade("t1", base, 300, domain.CloseReasonTP2)
	t2 := closedTrade("t2", base.Add(24*time.Hour), -100, domain.CloseReasonStop)
	t2.RunID = "run-2"
	if err := tradeStore.InsertBulk(ctx, []*domain.Trade{t1, t2}); err != nil {
		t.Fatalf("seed trades: %v", err)
	}

	agg := NewAggregator(tradeStore, memory.NewEquityStore())

	s, err := agg.ComputeInstrument(ctx, "USD/JPY")
	if err != nil {
		t.Fatalf("ComputeInstrument failed: %v", err)
	}

	if s.TotalTrades != 2 {
		t.Errorf("expected trades across runs, got %d", s.TotalTrades)
	}
	if s.Instrument != "USD/JPY" {
		t.Errorf("expected instrument set, got %q", s.Instrument)
	}
}
