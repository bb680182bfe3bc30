// Package entry resolves signals into entry fills. Two interchangeable
// models exist: a deferred market order that fills unconditionally two
// bars after the signal, and a resting limit order priced into the
// pullback that lives for exactly one bar.
package entry

import (
	"errors"
	"fmt"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// ErrUnknownEntryMode is returned by FromConfig for an unrecognized mode.
var ErrUnknownEntryMode = errors.New("entry: unknown entry mode")

// Status is the outcome of evaluating a pending order against one bar.
type Status string

// Evaluation outcomes. StatusDiscarded covers the conservative rule
// where the fill bar also breaches the stop level and the fill is
// treated as no trade.
const (
	StatusPending   Status = "PENDING"
	StatusFilled    Status = "FILLED"
	StatusExpired   Status = "EXPIRED"
	StatusDiscarded Status = "DISCARDED"
)

// Attempt is one evaluation result. FillMid is the mid entry price on
// a fill, or the would-be price on a discard; zero otherwise.
type Attempt struct {
	Status  Status
	FillMid float64
}

// Model converts a signal into a pending order and decides, bar by
// bar, whether that order fills, expires, or keeps waiting.
type Model interface {
	Place(instrument string, sig *domain.Signal, barIndex int) *domain.PendingOrder
	Evaluate(order *domain.PendingOrder, barIndex int, bar domain.Bar) Attempt
}

// FromConfig selects the entry model named by the strategy parameters.
func FromConfig(p config.StrategyParams) (Model, error) {
	switch p.EntryMode {
	case config.EntryDeferredMarket:
		return &DeferredMarket{}, nil
	case config.EntryOffsetLimit:
		return &OffsetLimit{stopATRMult: p.StopATRMult}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryMode, p.EntryMode)
	}
}

// DeferredMarket fills at the open of the bar two steps after the
// signal bar. The intervening bar is skipped so the entry does not
// fade the impulse that produced the signal. The order never expires.
type DeferredMarket struct{}

// Place implements Model.
func (m *DeferredMarket) Place(instrument string, sig *domain.Signal, barIndex int) *domain.PendingOrder {
	return &domain.PendingOrder{
		Instrument:     instrument,
		Direction:      sig.Direction,
		Pattern:        sig.Pattern,
		Volatility:     sig.Volatility,
		SignalTime:     sig.Time,
		SignalBarIndex: barIndex,
		TargetBarIndex: barIndex + 2,
	}
}

// Evaluate implements Model.
func (m *DeferredMarket) Evaluate(order *domain.PendingOrder, barIndex int, bar domain.Bar) Attempt {
	if barIndex < order.TargetBarIndex {
		return Attempt{Status: StatusPending}
	}
	return Attempt{Status: StatusFilled, FillMid: bar.Open}
}

// OffsetLimit rests a limit order at the signal's entry limit price
// and keeps it alive only through the bar after the signal bar.
type OffsetLimit struct {
	stopATRMult float64
}

// Place implements Model.
func (m *OffsetLimit) Place(instrument string, sig *domain.Signal, barIndex int) *domain.PendingOrder {
	return &domain.PendingOrder{
		Instrument:     instrument,
		Direction:      sig.Direction,
		Pattern:        sig.Pattern,
		LimitPrice:     sig.EntryLimit,
		Volatility:     sig.Volatility,
		SignalTime:     sig.Time,
		SignalBarIndex: barIndex,
		TargetBarIndex: barIndex + 1,
	}
}

// Evaluate implements Model. A fill requires the validity bar to cross
// the limit; if the same bar also crosses the stop that would be set
// on fill, the intrabar sequence is ambiguous and the fill is
// discarded rather than credited.
func (m *OffsetLimit) Evaluate(order *domain.PendingOrder, barIndex int, bar domain.Bar) Attempt {
	if barIndex < order.TargetBarIndex {
		return Attempt{Status: StatusPending}
	}
	if barIndex > order.TargetBarIndex {
		return Attempt{Status: StatusExpired}
	}

	stopDistance := m.stopATRMult * order.Volatility

	if order.Direction == domain.DirectionLong {
		if bar.Low > order.LimitPrice {
			return Attempt{Status: StatusExpired}
		}
		if bar.Low <= order.LimitPrice-stopDistance {
			return Attempt{Status: StatusDiscarded, FillMid: order.LimitPrice}
		}
		return Attempt{Status: StatusFilled, FillMid: order.LimitPrice}
	}

	if bar.High < order.LimitPrice {
		return Attempt{Status: StatusExpired}
	}
	if bar.High >= order.LimitPrice+stopDistance {
		return Attempt{Status: StatusDiscarded, FillMid: order.LimitPrice}
	}
	return Attempt{Status: StatusFilled, FillMid: order.LimitPrice}
}

var (
	_ Model = (*DeferredMarket)(nil)
	_ Model = (*OffsetLimit)(nil)
)
