// Package advisory runs the signal gate, cost model and sizer against
// the latest confirmed bars and produces sized order proposals for the
// notification channel. Nothing here transmits orders to a broker.
package advisory

import (
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/broker"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/lifecycle"
	"github.com/beatitudeps-blip/fx-alert/internal/marketclock"
	"github.com/beatitudeps-blip/fx-alert/internal/signalgate"
	"github.com/beatitudeps-blip/fx-alert/internal/sizing"
)

// QuoteSource supplies the newest observed ask-bid spread in price
// units for an instrument, with ok=false when nothing fresh enough is
// available. feed.SpreadMonitor implements it.
type QuoteSource interface {
	LatestSpread(instrument string, now time.Time) (spread float64, ok bool)
}

// Evaluator holds the per-instrument decision chain for live mode. It
// is a pure evaluation: the same inputs always produce the same
// advisory.
type Evaluator struct {
	instrument string
	profile    *config.BrokerProfile
	params     config.StrategyParams
	costs      *broker.CostModel
	machine    *lifecycle.Machine
	sizer      *sizing.Sizer
	gate       signalgate.Gate
	quotes     QuoteSource
}

// NewEvaluator validates the configuration and builds the evaluator.
// A nil gate selects the pullback gate.
func NewEvaluator(instrument string, profile *config.BrokerProfile, params config.StrategyParams, gate signalgate.Gate) (*Evaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := profile.Instrument(instrument); err != nil {
		return nil, err
	}
	if gate == nil {
		gate = signalgate.NewPullbackGate(params)
	}

	costs := broker.NewCostModel(profile)
	return &Evaluator{
		instrument: instrument,
		profile:    profile,
		params:     params,
		costs:      costs,
		machine:    lifecycle.NewMachine(costs, params),
		sizer:      sizing.NewSizer(profile),
		gate:       gate,
	}, nil
}

// WithQuotes attaches a live quote source. When one is set, an
// observed spread wider than the filter ceiling vetoes the entry even
// if the time-of-day band alone would admit it.
func (e *Evaluator) WithQuotes(quotes QuoteSource) *Evaluator {
	e.quotes = quotes
	return e
}

// Evaluate checks the latest confirmed bars for a fresh signal and
// sizes it against equity. Returns nil when no signal bar has closed
// within the last fast-timeframe interval; a signal that fired but
// must not be traded comes back as an order with SkipReason set.
func (e *Evaluator) Evaluate(h4, daily []domain.Bar, equity float64, now time.Time) (*domain.AdvisoryOrder, error) {
	h4c := marketclock.Confirmed(h4, domain.TimeframeH4, now)
	dailyc := marketclock.Confirmed(daily, domain.TimeframeD1, now)
	if len(h4c) == 0 {
		return nil, nil
	}

	sig := e.gate.Evaluate(h4c, dailyc)
	if sig == nil {
		return nil, nil
	}

	// Only the bar that closed within the last interval is actionable;
	// older signals were either delivered already or are stale.
	sigEnd := sig.Time.Add(domain.TimeframeH4.Duration())
	if now.Sub(sigEnd) >= domain.TimeframeH4.Duration() {
		return nil, nil
	}

	order := &domain.AdvisoryOrder{
		Instrument: e.instrument,
		Direction:  sig.Direction,
		Pattern:    sig.Pattern,
		SignalTime: sig.Time,
	}

	if !e.costs.IsTradable(now) {
		order.SkipReason = domain.SkipMaintenance
		return order, nil
	}

	veto, detail, err := e.costs.ShouldSkipEntry(e.instrument, now)
	if err != nil {
		return nil, err
	}
	if veto {
		order.SkipReason = domain.SkipSpreadFilter
		order.SkipDetail = detail
		return order, nil
	}

	if e.quotes != nil {
		if spread, ok := e.quotes.LatestSpread(e.instrument, now); ok {
			veto, detail, err := e.costs.ObservedSpreadVeto(e.instrument, spread)
			if err != nil {
				return nil, err
			}
			if veto {
				order.SkipReason = domain.SkipSpreadFilter
				order.SkipDetail = detail
				return order, nil
			}
		}
	}

	// The entry price is the limit level for resting orders, the latest
	// close for deferred-market entries.
	mid := sig.Close
	if e.params.EntryMode == config.EntryOffsetLimit {
		mid = sig.EntryLimit
		order.EntryLimit = sig.EntryLimit
	}

	plan, err := e.machine.PlanEntry(e.instrument, sig.Direction, mid, sig.Volatility, now, dailyc)
	if err != nil {
		return nil, err
	}

	order.EntryPrice = plan.ExecPrice
	order.StopPrice = plan.StopExec
	order.TP1Price = plan.TP1Price
	order.TP2Price = plan.TP2Price
	order.TP2Source = plan.TP2Source

	szRes, err := e.sizer.Size(equity, e.params.RiskFraction, plan.ExecPrice, plan.StopExec, e.instrument)
	if err != nil {
		return nil, err
	}
	if !szRes.Valid {
		order.SkipReason = domain.SkipSizing
		order.SkipDetail = "below minimum lot or over budget"
		return order, nil
	}

	order.Units = szRes.Units
	order.Lots = e.costs.UnitsToLots(szRes.Units, e.instrument)
	order.Risk = szRes.RealizedRisk
	return order, nil
}
