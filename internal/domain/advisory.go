package domain

import "time"

// AdvisoryOrder is the live-mode output: a sized order proposal handed
// to the notification collaborator. It is never transmitted to a broker.
type AdvisoryOrder struct {
	Instrument string
	Direction  Direction
	Pattern    string
	SignalTime time.Time // start (label) time of the confirmed signal bar

	EntryPrice float64
	EntryLimit float64 // zero for deferred-market entries
	StopPrice  float64
	TP1Price   float64
	TP2Price   float64
	TP2Source  string

	Units float64
	Lots  float64
	Risk  float64 // account currency

	// SkipReason is set when the signal fired but no order should be
	// placed (sizing rejection, spread filter, maintenance).
	SkipReason SkipReason
	SkipDetail string
}
