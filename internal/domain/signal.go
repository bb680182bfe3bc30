package domain

import "time"

// Direction is the side of a trade.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the reverse side.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// Signal is a directional intent emitted for one confirmed bar.
// ReferencePrice is the pullback anchor (EMA20 at signal time) and
// Volatility the stop-distance measure (ATR14 at signal time).
type Signal struct {
	Direction      Direction
	Pattern        string
	Time           time.Time
	Close          float64
	ReferencePrice float64
	Volatility     float64

	// EntryLimit is the resting price for offset-limit entries.
	// Zero when the entry model is deferred-market.
	EntryLimit float64
}

// PendingOrder is a resting entry between signal emission and fill or
// expiry. At most one exists per instrument at any time.
type PendingOrder struct {
	Instrument     string
	Direction      Direction
	Pattern        string
	LimitPrice     float64
	Volatility     float64
	SignalTime     time.Time
	SignalBarIndex int
	TargetBarIndex int
}
