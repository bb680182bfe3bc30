// Package lifecycle owns an active trade from entry fill to final
// close: partial take-profit, stop-to-breakeven escalation, the
// configured second exit rule, and same-bar conflict resolution.
package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/broker"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/indicators"
	"github.com/beatitudeps-blip/fx-alert/internal/structure"
)

// ErrTradeClosed is returned when a bar is applied to a closed position.
var ErrTradeClosed = errors.New("lifecycle: trade already closed")

// Position is an open trade plus the transient state that does not
// belong on the trade record itself.
type Position struct {
	Trade *domain.Trade

	// PendingTrendExit is set when a confirmed bar shows the trend
	// filter crossed against the trade; the close executes on the next
	// bar's open, never on the signal bar.
	PendingTrendExit bool
}

// EntryPlan carries the derived price levels for a prospective entry.
// The sizer runs against the executed prices so the realized risk
// reflects spread and slippage on both legs.
type EntryPlan struct {
	MidPrice  float64
	ExecPrice float64

	StopMid  float64
	StopExec float64

	TP1Price  float64
	TP2Price  float64
	TP2Source string
}

// BarResult is the outcome of evaluating one bar against a position.
type BarResult struct {
	Fills  []domain.Fill
	Closed bool
}

// Machine applies the per-bar exit rules to open positions. It holds
// no per-trade state; everything mutable lives on the Position.
type Machine struct {
	costs  *broker.CostModel
	params config.StrategyParams
}

// NewMachine wires the state machine to a cost model and tuning.
func NewMachine(costs *broker.CostModel, params config.StrategyParams) *Machine {
	return &Machine{costs: costs, params: params}
}

// PlanEntry derives stop and take-profit levels for an entry at mid.
// daily is the confirmed daily window used by the structure exit mode
// and may be nil for the other modes.
func (m *Machine) PlanEntry(instrument string, dir domain.Direction, mid, volatility float64, at time.Time, daily []domain.Bar) (EntryPlan, error) {
	exec, err := m.costs.ExecutionPrice(mid, dir, instrument, at)
	if err != nil {
		return EntryPlan{}, err
	}

	stopDistance := m.params.StopATRMult * volatility
	plan := EntryPlan{MidPrice: mid, ExecPrice: exec}

	if dir == domain.DirectionLong {
		plan.StopMid = mid - stopDistance
		plan.TP1Price = mid + stopDistance*m.params.TP1R
	} else {
		plan.StopMid = mid + stopDistance
		plan.TP1Price = mid - stopDistance*m.params.TP1R
	}

	plan.StopExec, err = m.costs.ExitPrice(plan.StopMid, dir, instrument, at)
	if err != nil {
		return EntryPlan{}, err
	}

	switch m.params.ExitMode {
	case config.ExitFixedR:
		plan.TP2Source = domain.TP2SourceFixedR
		if dir == domain.DirectionLong {
			plan.TP2Price = mid + stopDistance*m.params.TP2R
		} else {
			plan.TP2Price = mid - stopDistance*m.params.TP2R
		}
	case config.ExitStructure:
		plan.TP2Price, plan.TP2Source = structure.Target(
			daily, at, mid, plan.StopMid, dir, m.params.TP2R, m.params.StructureLookback)
	case config.ExitTrendExhaustion:
		// No price target; the exit comes from the trend filter.
	default:
		return EntryPlan{}, fmt.Errorf("lifecycle: unknown exit mode %q", m.params.ExitMode)
	}

	return plan, nil
}

// OpenTrade creates the trade and its entry fill. The entry fill has
// no gross PnL; its net PnL is the negated entry costs, which the
// caller folds into equity.
func (m *Machine) OpenTrade(tradeID, instrument string, dir domain.Direction, pattern string, plan EntryPlan, units, realizedRisk float64, at time.Time) (*Position, error) {
	spreadCost, slipCost, err := m.costs.FillCosts(units, instrument, at)
	if err != nil {
		return nil, err
	}
	spreadPips, err := m.costs.SpreadPips(instrument, at)
	if err != nil {
		return nil, err
	}

	tp1Units := math.Floor(units * m.params.TP1CloseFrac)

	trade := &domain.Trade{
		TradeID:    tradeID,
		Instrument: instrument,
		Direction:  dir,
		Pattern:    pattern,

		EntryTime:      at,
		EntryMidPrice:  plan.MidPrice,
		EntryExecPrice: plan.ExecPrice,
		Units:          units,

		InitialStopMid:     plan.StopMid,
		InitialStopExec:    plan.StopExec,
		InitialRiskPerUnit: math.Abs(plan.ExecPrice - plan.StopExec),
		InitialRisk:        realizedRisk,

		TP1Price:  plan.TP1Price,
		TP2Price:  plan.TP2Price,
		TP2Source: plan.TP2Source,
		TP1Units:  tp1Units,

		CurrentStop:    plan.StopMid,
		RemainingUnits: units,
	}

	trade.AddFill(domain.Fill{
		TradeID:      tradeID,
		Instrument:   instrument,
		Direction:    dir,
		Kind:         domain.FillEntry,
		Time:         at,
		MidPrice:     plan.MidPrice,
		ExecPrice:    plan.ExecPrice,
		Units:        units,
		SpreadPips:   spreadPips,
		SlippagePips: m.costs.SlippagePips(),
		SpreadCost:   spreadCost,
		SlippageCost: slipCost,
		PnLNet:       -(spreadCost + slipCost),
	})

	return &Position{Trade: trade}, nil
}

// OnBar runs the exit rules for one bar, in priority order: pending
// trend exit at the open, then stop, then TP1, then the second exit.
// The stop always wins a same-bar conflict with any take-profit level.
// h4Window is the confirmed fast-timeframe series up to and including
// this bar; only the trend-exhaustion mode reads it.
func (m *Machine) OnBar(pos *Position, bar domain.Bar, h4Window []domain.Bar) (BarResult, error) {
	trade := pos.Trade
	if trade.Closed() {
		return BarResult{}, ErrTradeClosed
	}

	at := bar.Start
	if !m.costs.IsTradable(at) {
		// Maintenance: no fill may occur; levels are re-evaluated on
		// the next bar.
		return BarResult{}, nil
	}

	var res BarResult

	// Pending trend exit executes at this bar's open, before any level
	// check, so the decision never uses this bar's extremes.
	if pos.PendingTrendExit && trade.TP1Filled {
		fill, err := m.exitFill(trade, domain.FillTrendExit, bar.Open, trade.RemainingUnits, at)
		if err != nil {
			return BarResult{}, err
		}
		trade.AddFill(fill)
		trade.Close(at, domain.CloseReasonTrendExit)
		pos.PendingTrendExit = false
		res.Fills = append(res.Fills, fill)
		res.Closed = true
		return res, nil
	}

	stopHit := m.touchedStop(trade, bar)
	tp1Hit := !trade.TP1Filled && m.touchedTarget(trade, bar, trade.TP1Price)
	tp2Hit := trade.TP1Filled && trade.TP2Price > 0 && m.touchedTarget(trade, bar, trade.TP2Price)

	if stopHit {
		kind, reason := domain.FillStop, domain.CloseReasonStop
		if trade.TP1Filled {
			kind, reason = domain.FillBreakeven, domain.CloseReasonBreakeven
		}
		fill, err := m.exitFill(trade, kind, trade.CurrentStop, trade.RemainingUnits, at)
		if err != nil {
			return BarResult{}, err
		}
		trade.AddFill(fill)
		trade.Close(at, reason)
		res.Fills = append(res.Fills, fill)
		res.Closed = true
		return res, nil
	}

	if tp1Hit {
		fill, err := m.exitFill(trade, domain.FillTP1, trade.TP1Price, trade.TP1Units, at)
		if err != nil {
			return BarResult{}, err
		}
		trade.TP1Filled = true
		trade.AddFill(fill)
		trade.MoveStopToBreakeven()
		res.Fills = append(res.Fills, fill)
	}

	// tp2Hit was computed against the pre-TP1 state, so the second
	// target can never fire on the bar that fills TP1.
	if tp2Hit {
		fill, err := m.exitFill(trade, domain.FillTP2, trade.TP2Price, trade.RemainingUnits, at)
		if err != nil {
			return BarResult{}, err
		}
		trade.AddFill(fill)
		trade.Close(at, domain.CloseReasonTP2)
		res.Fills = append(res.Fills, fill)
		res.Closed = true
		return res, nil
	}

	if m.params.ExitMode == config.ExitTrendExhaustion && trade.TP1Filled && !pos.PendingTrendExit {
		if trendCrossed(h4Window, trade.Direction, m.params.EMAPeriod) {
			pos.PendingTrendExit = true
		}
	}

	return res, nil
}

// touchedStop reports whether the bar crossed the working stop.
func (m *Machine) touchedStop(trade *domain.Trade, bar domain.Bar) bool {
	if trade.Direction == domain.DirectionLong {
		return bar.Low <= trade.CurrentStop
	}
	return bar.High >= trade.CurrentStop
}

// touchedTarget reports whether the bar crossed a take-profit level.
func (m *Machine) touchedTarget(trade *domain.Trade, bar domain.Bar, target float64) bool {
	if trade.Direction == domain.DirectionLong {
		return bar.High >= target
	}
	return bar.Low <= target
}

// exitFill prices and costs one exit at the given mid level.
func (m *Machine) exitFill(trade *domain.Trade, kind domain.FillKind, mid, units float64, at time.Time) (domain.Fill, error) {
	exec, err := m.costs.ExitPrice(mid, trade.Direction, trade.Instrument, at)
	if err != nil {
		return domain.Fill{}, err
	}
	spreadCost, slipCost, err := m.costs.FillCosts(units, trade.Instrument, at)
	if err != nil {
		return domain.Fill{}, err
	}
	spreadPips, err := m.costs.SpreadPips(trade.Instrument, at)
	if err != nil {
		return domain.Fill{}, err
	}

	holdingDays := int(at.Sub(trade.EntryTime).Hours() / 24)
	if holdingDays < 1 {
		holdingDays = 1
	}
	swap, err := m.costs.Swap(units, trade.Direction, trade.Instrument, holdingDays)
	if err != nil {
		return domain.Fill{}, err
	}

	var gross float64
	if trade.Direction == domain.DirectionLong {
		gross = (exec - trade.EntryExecPrice) * units
	} else {
		gross = (trade.EntryExecPrice - exec) * units
	}

	return domain.Fill{
		TradeID:      trade.TradeID,
		Instrument:   trade.Instrument,
		Direction:    trade.Direction,
		Kind:         kind,
		Time:         at,
		MidPrice:     mid,
		ExecPrice:    exec,
		Units:        units,
		SpreadPips:   spreadPips,
		SlippagePips: m.costs.SlippagePips(),
		SpreadCost:   spreadCost,
		SlippageCost: slipCost,
		Swap:         swap,
		PnLGross:     gross,
		PnLNet:       gross - spreadCost - slipCost + swap,
	}, nil
}

// trendCrossed reports whether the latest confirmed close sits on the
// wrong side of the trend EMA for the trade direction.
func trendCrossed(h4 []domain.Bar, dir domain.Direction, emaPeriod int) bool {
	if len(h4) < emaPeriod {
		return false
	}
	ema := indicators.EMA(indicators.Closes(h4), emaPeriod)
	last := len(h4) - 1
	if ema[last] == 0 {
		return false
	}
	if dir == domain.DirectionLong {
		return h4[last].Close < ema[last]
	}
	return h4[last].Close > ema[last]
}
