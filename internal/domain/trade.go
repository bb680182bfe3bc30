package domain

import "time"

// FillKind classifies a fill within a trade.
type FillKind string

// Fill kind constants.
const (
	FillEntry     FillKind = "ENTRY"
	FillTP1       FillKind = "TP1"
	FillTP2       FillKind = "TP2"
	FillStop      FillKind = "STOP"
	FillBreakeven FillKind = "BREAKEVEN"
	FillTrendExit FillKind = "TREND_EXIT"
)

// Close reason codes. CloseReasonBreakeven is assigned by rule (the stop
// was moved to entry after TP1), never inferred from the realized PnL sign.
const (
	CloseReasonTP2       = "TP2"
	CloseReasonStop      = "STOP"
	CloseReasonBreakeven = "BREAKEVEN"
	CloseReasonTrendExit = "TREND_EXIT"
)

// TP2Price source tags. A structure target that does not exist or would
// exceed the risk cap collapses into RISK_CAPPED; the two conditions are
// deliberately not distinguished.
const (
	TP2SourceFixedR     = "FIXED_R"
	TP2SourceStructure  = "STRUCTURE"
	TP2SourceRiskCapped = "RISK_CAPPED"
)

// Fill is one execution record, the auditable unit of a trade.
// Immutable once created.
type Fill struct {
	TradeID    string
	Instrument string
	Direction  Direction
	Kind       FillKind
	Time       time.Time

	MidPrice  float64 // mid at fill
	ExecPrice float64 // after half-spread and slippage

	Units float64 // currency units filled

	SpreadPips    float64
	SlippagePips  float64
	SpreadCost    float64 // account currency
	SlippageCost  float64
	Swap          float64 // positive = credit
	PnLGross      float64 // price delta x units, zero on entry
	PnLNet        float64 // gross - spread - slippage + swap
}

// Trade is the parent record over a sequence of fills. The Initial*
// fields are set once at entry and never overwritten; CurrentStop is the
// only stop level that moves (to the entry execution price after TP1).
type Trade struct {
	TradeID    string
	RunID      string
	Instrument string
	Direction  Direction
	Pattern    string

	EntryTime      time.Time
	EntryMidPrice  float64
	EntryExecPrice float64
	Units          float64 // entry quantity

	// Risk audit fields, immutable after entry.
	InitialStopMid     float64
	InitialStopExec    float64
	InitialRiskPerUnit float64
	InitialRisk        float64 // account currency

	// Targets.
	TP1Price  float64
	TP2Price  float64
	TP2Source string
	TP1Units  float64

	// Mutable lifecycle state.
	CurrentStop    float64
	TP1Filled      bool
	RemainingUnits float64

	CloseTime   time.Time
	CloseReason string

	TotalPnLGross float64
	TotalPnLNet   float64
	TotalCost     float64
	HoldingHours  float64

	Fills []Fill
}

// AddFill appends a fill and folds it into the trade aggregates.
// Non-entry fills reduce the remaining quantity.
func (t *Trade) AddFill(f Fill) {
	t.Fills = append(t.Fills, f)
	t.TotalPnLGross += f.PnLGross
	t.TotalPnLNet += f.PnLNet
	t.TotalCost += f.SpreadCost + f.SlippageCost - f.Swap

	if f.Kind != FillEntry {
		t.RemainingUnits -= f.Units
	}
}

// MoveStopToBreakeven moves the working stop to the entry execution
// price. InitialStop* are left untouched for risk auditing.
func (t *Trade) MoveStopToBreakeven() {
	t.CurrentStop = t.EntryExecPrice
}

// Close marks the trade closed. The trade is immutable afterwards.
func (t *Trade) Close(at time.Time, reason string) {
	t.CloseTime = at
	t.CloseReason = reason
	t.HoldingHours = at.Sub(t.EntryTime).Hours()
}

// Closed reports whether a final exit has been recorded.
func (t *Trade) Closed() bool {
	return t.CloseReason != ""
}

// ExitUnits returns the summed quantity of all non-entry fills.
// For a closed trade this equals Units exactly.
func (t *Trade) ExitUnits() float64 {
	var sum float64
	for _, f := range t.Fills {
		if f.Kind != FillEntry {
			sum += f.Units
		}
	}
	return sum
}
