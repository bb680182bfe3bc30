package reporting

import (
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/metrics"
)

// Report is the rendered view of one backtest run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Instrument  string

	// Performance figures over closed trades
	Summary *metrics.Summary

	// Trade list (sorted by entry time ASC)
	Trades []TradeRow

	// Skip tally (sorted by reason)
	SkipCounts []SkipCountRow

	OpenTrades int
}

// TradeRow represents one trade in the report's trade table.
type TradeRow struct {
	TradeID     string
	Direction   string
	Pattern     string
	EntryTime   time.Time
	EntryMid    float64
	EntryExec   float64
	Units       float64
	StopMid     float64
	TP1Price    float64
	TP2Price    float64
	TP2Source   string
	CloseTime   time.Time
	CloseReason string
	PnLGross    float64
	PnLNet      float64
	Costs       float64
	HoldHours   float64
}

// SkipCountRow represents one skip reason tally.
type SkipCountRow struct {
	Reason string
	Count  int
}
