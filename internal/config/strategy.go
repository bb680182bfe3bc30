package config

import (
	"errors"
	"fmt"
)

// Entry model selectors.
const (
	EntryDeferredMarket = "DEFERRED_MARKET"
	EntryOffsetLimit    = "OFFSET_LIMIT"
)

// Second-exit mode selectors.
const (
	ExitFixedR          = "FIXED_R"
	ExitStructure       = "STRUCTURE"
	ExitTrendExhaustion = "TREND_EXHAUSTION"
)

// Strategy parameter errors.
var (
	ErrUnknownEntryMode = errors.New("unknown entry mode")
	ErrUnknownExitMode  = errors.New("unknown exit mode")
	ErrInvalidRisk      = errors.New("invalid risk parameters")
)

// StrategyParams drives the signal gate, entry model and lifecycle
// state machine. One parameterized engine replaces the accumulated
// near-duplicate entry points of older revisions; the entry and exit
// variants are selected here.
type StrategyParams struct {
	RiskFraction  float64 `json:"risk_fraction"`   // e.g. 0.005
	StopATRMult   float64 `json:"stop_atr_mult"`   // stop distance in ATR multiples
	TP1R          float64 `json:"tp1_r"`           // TP1 distance in R
	TP1CloseFrac  float64 `json:"tp1_close_frac"`  // fraction closed at TP1, e.g. 0.5

	EntryMode      string  `json:"entry_mode"`
	LimitATROffset float64 `json:"limit_atr_offset"` // OFFSET_LIMIT only

	ExitMode          string  `json:"exit_mode"`
	TP2R              float64 `json:"tp2_r"`               // FIXED_R target, STRUCTURE cap
	StructureLookback int     `json:"structure_lookback"`  // STRUCTURE: daily bars of history

	// Signal gate tuning.
	EMAPeriod        int     `json:"ema_period"`
	ATRPeriod        int     `json:"atr_period"`
	ADXPeriod        int     `json:"adx_period"`
	ADXThreshold     float64 `json:"adx_threshold"`
	DistanceATRRatio float64 `json:"distance_atr_ratio"` // max |close-ema| in ATRs

	// Losing-streak guard: after LossStreakLimit consecutive losing
	// trades, skip the next SkipAfterStreak signals. Zero disables.
	LossStreakLimit int `json:"loss_streak_limit"`
	SkipAfterStreak int `json:"skip_after_streak"`
}

// DefaultStrategyParams returns the shipped pullback parameter set.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{
		RiskFraction:      0.005,
		StopATRMult:       1.0,
		TP1R:              1.5,
		TP1CloseFrac:      0.5,
		EntryMode:         EntryOffsetLimit,
		LimitATROffset:    0.10,
		ExitMode:          ExitTrendExhaustion,
		TP2R:              3.0,
		StructureLookback: 20,
		EMAPeriod:         20,
		ATRPeriod:         14,
		ADXPeriod:         14,
		ADXThreshold:      18,
		DistanceATRRatio:  0.6,
		LossStreakLimit:   3,
		SkipAfterStreak:   2,
	}
}

// Validate checks the parameter set. Failures are fatal configuration
// errors.
func (s StrategyParams) Validate() error {
	if s.RiskFraction <= 0 || s.RiskFraction >= 1 {
		return fmt.Errorf("%w: risk_fraction=%v", ErrInvalidRisk, s.RiskFraction)
	}
	if s.StopATRMult <= 0 || s.TP1R <= 0 {
		return fmt.Errorf("%w: stop_atr_mult=%v tp1_r=%v", ErrInvalidRisk, s.StopATRMult, s.TP1R)
	}
	if s.TP1CloseFrac <= 0 || s.TP1CloseFrac >= 1 {
		return fmt.Errorf("%w: tp1_close_frac=%v", ErrInvalidRisk, s.TP1CloseFrac)
	}

	switch s.EntryMode {
	case EntryDeferredMarket:
	case EntryOffsetLimit:
		if s.LimitATROffset <= 0 {
			return fmt.Errorf("%w: OFFSET_LIMIT requires limit_atr_offset > 0", ErrInvalidRisk)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEntryMode, s.EntryMode)
	}

	switch s.ExitMode {
	case ExitFixedR:
		if s.TP2R <= s.TP1R {
			return fmt.Errorf("%w: FIXED_R requires tp2_r > tp1_r", ErrInvalidRisk)
		}
	case ExitStructure:
		if s.TP2R <= 0 || s.StructureLookback <= 0 {
			return fmt.Errorf("%w: STRUCTURE requires tp2_r and structure_lookback > 0", ErrInvalidRisk)
		}
	case ExitTrendExhaustion:
		if s.EMAPeriod <= 0 {
			return fmt.Errorf("%w: TREND_EXHAUSTION requires ema_period > 0", ErrInvalidRisk)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExitMode, s.ExitMode)
	}

	if s.EMAPeriod <= 0 || s.ATRPeriod <= 0 || s.ADXPeriod <= 0 {
		return fmt.Errorf("%w: indicator periods must be > 0", ErrInvalidRisk)
	}

	return nil
}
