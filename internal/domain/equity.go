package domain

import "time"

// EquityPoint is one sample of the per-run equity series. Equity is
// updated on every fill, so intermediate points reflect partial
// realizations, not only closed trades.
type EquityPoint struct {
	RunID  string
	Time   time.Time
	Equity float64
}
