// Package backtest runs the deterministic bar-by-bar simulation: a
// single forward scan per instrument wiring the signal gate, entry
// model, sizer, cost model, and trade lifecycle together.
package backtest

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/broker"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/entry"
	"github.com/beatitudeps-blip/fx-alert/internal/idhash"
	"github.com/beatitudeps-blip/fx-alert/internal/lifecycle"
	"github.com/beatitudeps-blip/fx-alert/internal/marketclock"
	"github.com/beatitudeps-blip/fx-alert/internal/signalgate"
	"github.com/beatitudeps-blip/fx-alert/internal/sizing"
)

// ErrRiskInvariant signals a realized risk above the budget after
// sizing accepted the trade. The run must abort rather than continue
// with corrupted state; downstream risk guarantees depend on this
// never happening.
var ErrRiskInvariant = errors.New("backtest: realized risk exceeds budget after sizing")

// signalWindowBars is how much fast-timeframe history the gate and the
// trend filter see at each step.
const signalWindowBars = 50

// Config wires one driver.
type Config struct {
	Instrument    string
	RunID         string
	InitialEquity float64

	Profile *config.BrokerProfile
	Params  config.StrategyParams

	// Gate may be overridden in tests; nil selects the pullback gate.
	Gate signalgate.Gate

	// Guard admits entries against a shared open-risk ceiling; nil
	// means unlimited.
	Guard RiskGuard

	Logger *log.Logger
}

// Result holds one run's output. Trades are closed trades in close
// order; a trade still open at series end stays on OpenTrade and is
// never force-closed.
type Result struct {
	RunID      string
	Instrument string

	Trades    []*domain.Trade
	OpenTrade *domain.Trade

	Skips       []domain.SkippedSignal
	EquityCurve []domain.EquityPoint

	FinalEquity float64
}

// SkipCount tallies skips by reason.
func (r *Result) SkipCount(reason domain.SkipReason) int {
	n := 0
	for _, s := range r.Skips {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

// Driver is the single-pass simulation engine. One Driver runs one
// instrument; it holds no shared mutable state across runs, so callers
// may parallelize independent runs freely.
type Driver struct {
	cfg     Config
	costs   *broker.CostModel
	machine *lifecycle.Machine
	sizer   *sizing.Sizer
	model   entry.Model
	gate    signalgate.Gate
	guard   RiskGuard
	logger  *log.Logger
}

// NewDriver validates the configuration and builds the engine.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Profile == nil {
		return nil, fmt.Errorf("backtest: nil broker profile")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Profile.Instrument(cfg.Instrument); err != nil {
		return nil, err
	}
	if cfg.InitialEquity <= 0 {
		return nil, fmt.Errorf("backtest: initial equity must be > 0, got %v", cfg.InitialEquity)
	}

	model, err := entry.FromConfig(cfg.Params)
	if err != nil {
		return nil, err
	}

	gate := cfg.Gate
	if gate == nil {
		gate = signalgate.NewPullbackGate(cfg.Params)
	}
	guard := cfg.Guard
	if guard == nil {
		guard = UnlimitedGuard{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	costs := broker.NewCostModel(cfg.Profile)
	return &Driver{
		cfg:     cfg,
		costs:   costs,
		machine: lifecycle.NewMachine(costs, cfg.Params),
		sizer:   sizing.NewSizer(cfg.Profile),
		model:   model,
		gate:    gate,
		guard:   guard,
		logger:  logger,
	}, nil
}

// scanState is one instrument's mutable position within a scan. Run
// owns a single one; the portfolio runner keeps one per instrument it
// interleaves.
type scanState struct {
	res   *Result
	pos   *lifecycle.Position
	order *domain.PendingOrder

	consecutiveLosses int
	signalsToSkip     int
}

func (d *Driver) newScan() *scanState {
	return &scanState{res: &Result{
		RunID:       d.cfg.RunID,
		Instrument:  d.cfg.Instrument,
		FinalEquity: d.cfg.InitialEquity,
	}}
}

// Run scans the full fast-timeframe series once. daily is the
// environment series; both must be in ascending start order.
func (d *Driver) Run(h4, daily []domain.Bar) (*Result, error) {
	st := d.newScan()
	if len(h4) == 0 {
		return st.res, nil
	}

	st.res.EquityCurve = append(st.res.EquityCurve, domain.EquityPoint{
		RunID:  d.cfg.RunID,
		Time:   h4[0].Start,
		Equity: st.res.FinalEquity,
	})

	for i := range h4 {
		if err := d.step(st, i, h4, daily); err != nil {
			return nil, err
		}
	}

	return d.finish(st), nil
}

// step advances one instrument by one fast-timeframe bar. A bar that
// closes a position or resolves an order consumes the whole bar; no
// new signal is evaluated on it.
func (d *Driver) step(st *scanState, i int, h4, daily []domain.Bar) error {
	bar := h4[i]

	if st.pos != nil {
		window := h4[max(0, i-signalWindowBars) : i+1]
		barRes, err := d.machine.OnBar(st.pos, bar, window)
		if err != nil {
			return err
		}
		for _, f := range barRes.Fills {
			st.res.FinalEquity += f.PnLNet
			st.res.EquityCurve = append(st.res.EquityCurve, domain.EquityPoint{
				RunID:  d.cfg.RunID,
				Time:   f.Time,
				Equity: st.res.FinalEquity,
			})
		}
		if barRes.Closed {
			d.settle(st.pos.Trade, st.res, &st.consecutiveLosses, &st.signalsToSkip)
			st.pos = nil
		}
		return nil
	}

	if st.order != nil {
		opened, done, err := d.resolveOrder(st.order, i, bar, daily, st.res)
		if err != nil {
			return err
		}
		st.pos = opened
		if done {
			st.order = nil
		}
		return nil
	}

	// Signal evaluation happens at the bar's close instant so the
	// bar itself counts as confirmed.
	eval := bar.End(domain.TimeframeH4)
	window := marketclock.Confirmed(h4[max(0, i-signalWindowBars):i+1], domain.TimeframeH4, eval)
	dailyConfirmed := marketclock.Confirmed(daily, domain.TimeframeD1, eval)

	sig := d.gate.Evaluate(window, dailyConfirmed)
	if sig == nil {
		return nil
	}

	if st.signalsToSkip > 0 {
		st.signalsToSkip--
		st.res.Skips = append(st.res.Skips, domain.SkippedSignal{
			RunID:      d.cfg.RunID,
			Instrument: d.cfg.Instrument,
			Direction:  sig.Direction,
			SignalTime: sig.Time,
			Reason:     domain.SkipStreakGuard,
			Detail:     fmt.Sprintf("%d more to skip", st.signalsToSkip),
		})
		return nil
	}

	st.order = d.model.Place(d.cfg.Instrument, sig, i)
	return nil
}

// finish seals the scan and reports its result.
func (d *Driver) finish(st *scanState) *Result {
	if st.pos != nil {
		st.res.OpenTrade = st.pos.Trade
	}

	d.logger.Printf("[backtest] %s run=%.8s trades=%d skips=%d open=%v equity=%.2f",
		d.cfg.Instrument, d.cfg.RunID, len(st.res.Trades), len(st.res.Skips), st.res.OpenTrade != nil, st.res.FinalEquity)

	return st.res
}

// resolveOrder evaluates a pending order against the current bar and,
// on fill, runs the admission chain: maintenance, spread filter,
// sizing, intrabar-conflict discard, portfolio guard. done reports
// that the order reached a terminal outcome and must be dropped.
func (d *Driver) resolveOrder(order *domain.PendingOrder, i int, bar domain.Bar, daily []domain.Bar, res *Result) (pos *lifecycle.Position, done bool, err error) {
	att := d.model.Evaluate(order, i, bar)

	skip := func(reason domain.SkipReason, entryTime time.Time, detail string) {
		res.Skips = append(res.Skips, domain.SkippedSignal{
			RunID:      d.cfg.RunID,
			Instrument: d.cfg.Instrument,
			Direction:  order.Direction,
			SignalTime: order.SignalTime,
			EntryTime:  entryTime,
			Reason:     reason,
			Detail:     detail,
		})
	}

	switch att.Status {
	case entry.StatusPending:
		return nil, false, nil
	case entry.StatusExpired:
		skip(domain.SkipExpired, bar.Start, fmt.Sprintf("limit %.3f never crossed", order.LimitPrice))
		return nil, true, nil
	}

	at := bar.Start

	if !d.costs.IsTradable(at) {
		skip(domain.SkipMaintenance, at, "")
		return nil, true, nil
	}

	veto, detail, err := d.costs.ShouldSkipEntry(d.cfg.Instrument, at)
	if err != nil {
		return nil, false, err
	}
	if veto {
		skip(domain.SkipSpreadFilter, at, detail)
		return nil, true, nil
	}

	dailyConfirmed := marketclock.Confirmed(daily, domain.TimeframeD1, at)
	plan, err := d.machine.PlanEntry(d.cfg.Instrument, order.Direction, att.FillMid, order.Volatility, at, dailyConfirmed)
	if err != nil {
		return nil, false, err
	}

	szRes, err := d.sizer.Size(res.FinalEquity, d.cfg.Params.RiskFraction, plan.ExecPrice, plan.StopExec, d.cfg.Instrument)
	if err != nil {
		return nil, false, err
	}
	if !szRes.Valid {
		skip(domain.SkipSizing, at, "below minimum lot or over budget")
		return nil, true, nil
	}

	budget := res.FinalEquity * d.cfg.Params.RiskFraction
	if !sizing.WithinBudget(szRes.RealizedRisk, budget) {
		return nil, false, fmt.Errorf("%w: risk %.2f budget %.2f at %s",
			ErrRiskInvariant, szRes.RealizedRisk, budget, at.Format(time.RFC3339))
	}

	// The discard is recorded only after sizing so a fill that would
	// have been rejected anyway reports the earlier reason.
	if att.Status == entry.StatusDiscarded {
		skip(domain.SkipIntrabarConflict, at, "fill bar breached stop")
		return nil, true, nil
	}

	if !d.guard.TryReserve(d.cfg.Instrument, szRes.RealizedRisk) {
		skip(domain.SkipPortfolioRisk, at, "open-risk ceiling reached")
		return nil, true, nil
	}

	tradeID := idhash.ComputeTradeID(d.cfg.RunID, d.cfg.Instrument, string(order.Direction), at.Unix())
	pos, err = d.machine.OpenTrade(tradeID, d.cfg.Instrument, order.Direction, order.Pattern, plan, szRes.Units, szRes.RealizedRisk, at)
	if err != nil {
		d.guard.Release(d.cfg.Instrument, szRes.RealizedRisk)
		return nil, false, err
	}
	pos.Trade.RunID = d.cfg.RunID

	entryFill := pos.Trade.Fills[0]
	res.FinalEquity += entryFill.PnLNet
	res.EquityCurve = append(res.EquityCurve, domain.EquityPoint{
		RunID:  d.cfg.RunID,
		Time:   at,
		Equity: res.FinalEquity,
	})

	return pos, true, nil
}

// settle records a closed trade and updates the loss-streak guard.
func (d *Driver) settle(trade *domain.Trade, res *Result, consecutiveLosses, signalsToSkip *int) {
	d.guard.Release(trade.Instrument, trade.InitialRisk)
	res.Trades = append(res.Trades, trade)

	if trade.TotalPnLNet < 0 {
		*consecutiveLosses++
		if *consecutiveLosses >= d.cfg.Params.LossStreakLimit {
			*signalsToSkip = d.cfg.Params.SkipAfterStreak
			*consecutiveLosses = 0
		}
	} else {
		*consecutiveLosses = 0
	}
}
