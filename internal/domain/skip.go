package domain

import "time"

// SkipReason classifies a "no trade" outcome. These are normal results,
// not errors; the driver accumulates them for later tallying.
type SkipReason string

// Skip reason codes.
const (
	SkipMaintenance      SkipReason = "MAINTENANCE"
	SkipSpreadFilter     SkipReason = "SPREAD_FILTER"
	SkipSizing           SkipReason = "SIZING"
	SkipExpired          SkipReason = "EXPIRED"
	SkipIntrabarConflict SkipReason = "INTRABAR_CONFLICT"
	SkipStreakGuard      SkipReason = "STREAK_GUARD"
	SkipPortfolioRisk    SkipReason = "PORTFOLIO_RISK"
)

// SkippedSignal records one vetoed or expired entry attempt.
type SkippedSignal struct {
	RunID      string
	Instrument string
	Direction  Direction
	SignalTime time.Time
	EntryTime  time.Time // zero when the signal never reached an entry attempt
	Reason     SkipReason
	Detail     string
}
