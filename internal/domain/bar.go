package domain

import "time"

// Timeframe identifies the bar interval.
type Timeframe string

// Timeframe constants.
const (
	TimeframeH4 Timeframe = "4h"
	TimeframeD1 Timeframe = "1day"
)

// Duration returns the interval covered by one bar of this timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Bar is one OHLC sample. Start is the label time: the bar covers
// [Start, Start+Duration). Prices are mid prices; bid/ask is derived
// by the broker cost model at fill time.
type Bar struct {
	Start time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// End returns the instant at which a bar of the given timeframe closes.
func (b Bar) End(tf Timeframe) time.Time {
	return b.Start.Add(tf.Duration())
}
