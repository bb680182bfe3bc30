// Package config holds the broker profile and strategy parameters.
// Both are validated once at load and treated as immutable for the
// duration of a run; every lookup that used to live in a string-keyed
// map is a typed accessor here, and malformed profiles fail at load
// rather than deep inside a simulation.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors.
var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrInvalidTradeUnit  = errors.New("invalid trade unit values (must be > 0)")
	ErrInvalidSpread     = errors.New("invalid spread table")
	ErrInvalidWindow     = errors.New("malformed time window")
	ErrInvalidSwapMode   = errors.New("invalid swap mode")
	ErrInvalidTimezone   = errors.New("invalid timezone")
)

// Swap accounting modes.
const (
	SwapModeIgnore     = "ignore"
	SwapModeFixedTable = "fixed_table"
)

// ClockTime is a minute-resolution wall-clock time used in window tables.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the time as minutes after midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// Window is a half-open [Start, End) wall-clock interval.
type Window struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Contains reports whether t (expressed as minutes after midnight in
// the profile timezone) falls inside the window.
func (w Window) Contains(minutes int) bool {
	return w.Start.Minutes() <= minutes && minutes < w.End.Minutes()
}

func (w Window) valid() bool {
	return w.Start.valid() && w.End.valid() && w.Start.Minutes() < w.End.Minutes()
}

// SpreadBand is the advertised spread for one instrument, in pips.
// Widened applies inside the widened windows and is never narrower
// than Fixed.
type SpreadBand struct {
	Fixed   float64 `json:"fixed"`
	Widened float64 `json:"widened"`
}

// WidenedWindows defines when the widened band applies. PreOpen starts
// earlier on Mondays.
type WidenedWindows struct {
	PreOpenDefaultStart ClockTime `json:"pre_open_default_start"`
	PreOpenMondayStart  ClockTime `json:"pre_open_monday_start"`
	PreOpenEnd          ClockTime `json:"pre_open_end"`
	PostClose           Window    `json:"post_close"`
}

// MaintenanceTable holds the windows during which no fill may occur.
// Monday has its own daily table; Weekly windows are keyed by weekday.
type MaintenanceTable struct {
	DailyMonday []Window       `json:"daily_monday"`
	DailyTueSun []Window       `json:"daily_tue_sun"`
	Weekly      []WeeklyWindow `json:"weekly"`
}

// WeeklyWindow is a maintenance window on a specific weekday.
type WeeklyWindow struct {
	Weekday time.Weekday `json:"weekday"`
	Window  Window       `json:"window"`
}

// SwapRates is the per-lot daily carry for one instrument, positive =
// credit to the position holder.
type SwapRates struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
}

// InstrumentSpec is the per-instrument static data.
type InstrumentSpec struct {
	PipSize      float64    `json:"pip_size"` // 0.01 for JPY crosses
	Spread       SpreadBand `json:"spread"`
	Swap         SwapRates  `json:"swap"`
	LotSizeUnits float64    `json:"lot_size_units,omitempty"` // overrides TradeUnit.LotSizeUnits when > 0
}

// TradeUnit defines lot granularity in currency units.
type TradeUnit struct {
	LotSizeUnits float64 `json:"lot_size_units"` // units per 1.0 lot
	MinLot       float64 `json:"min_lot"`        // e.g. 0.1
	LotStep      float64 `json:"lot_step"`       // e.g. 0.1
}

// Execution holds slippage and the spread-filter entry veto settings.
type Execution struct {
	SlippageEnabled       bool    `json:"slippage_enabled"`
	SlippageOneWayPips    float64 `json:"slippage_one_way_pips"`
	SpreadFilterEnabled   bool    `json:"spread_filter_enabled"`
	SpreadFilterMaxFactor float64 `json:"spread_filter_max_factor"` // multiple of the fixed band
}

// BrokerProfile is the full broker configuration.
type BrokerProfile struct {
	Broker      string                    `json:"broker"`
	Timezone    string                    `json:"timezone"`
	TradeUnit   TradeUnit                 `json:"trade_unit"`
	Instruments map[string]InstrumentSpec `json:"instruments"`
	Widened     WidenedWindows            `json:"widened_windows"`
	Maintenance MaintenanceTable          `json:"maintenance"`
	SwapMode    string                    `json:"swap_mode"`
	Execution   Execution                 `json:"execution"`

	loc *time.Location
}

// Validate checks the profile and resolves its timezone. Any failure is
// a fatal configuration error; nothing is silently defaulted.
func (p *BrokerProfile) Validate() error {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, p.Timezone, err)
	}
	p.loc = loc

	tu := p.TradeUnit
	if tu.LotSizeUnits <= 0 || tu.MinLot <= 0 || tu.LotStep <= 0 {
		return fmt.Errorf("%w: lot_size=%v min_lot=%v lot_step=%v",
			ErrInvalidTradeUnit, tu.LotSizeUnits, tu.MinLot, tu.LotStep)
	}

	if len(p.Instruments) == 0 {
		return fmt.Errorf("%w: no instruments configured", ErrInvalidSpread)
	}
	for sym, spec := range p.Instruments {
		if spec.PipSize <= 0 {
			return fmt.Errorf("%w: %s: pip_size must be > 0", ErrInvalidSpread, sym)
		}
		if spec.Spread.Fixed <= 0 || spec.Spread.Widened < spec.Spread.Fixed {
			return fmt.Errorf("%w: %s: fixed=%v widened=%v (widened must be >= fixed > 0)",
				ErrInvalidSpread, sym, spec.Spread.Fixed, spec.Spread.Widened)
		}
	}

	switch p.SwapMode {
	case SwapModeIgnore, SwapModeFixedTable:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSwapMode, p.SwapMode)
	}

	if !p.Widened.PreOpenDefaultStart.valid() || !p.Widened.PreOpenMondayStart.valid() ||
		!p.Widened.PreOpenEnd.valid() || !p.Widened.PostClose.valid() {
		return fmt.Errorf("%w: widened_windows", ErrInvalidWindow)
	}
	for _, w := range p.Maintenance.DailyMonday {
		if !w.valid() {
			return fmt.Errorf("%w: maintenance.daily_monday", ErrInvalidWindow)
		}
	}
	for _, w := range p.Maintenance.DailyTueSun {
		if !w.valid() {
			return fmt.Errorf("%w: maintenance.daily_tue_sun", ErrInvalidWindow)
		}
	}
	for _, w := range p.Maintenance.Weekly {
		if !w.Window.valid() {
			return fmt.Errorf("%w: maintenance.weekly", ErrInvalidWindow)
		}
	}

	if p.Execution.SpreadFilterEnabled && p.Execution.SpreadFilterMaxFactor <= 0 {
		return fmt.Errorf("%w: spread_filter_max_factor must be > 0", ErrInvalidSpread)
	}

	return nil
}

// Location returns the resolved broker timezone. Validate must have
// succeeded first.
func (p *BrokerProfile) Location() *time.Location {
	return p.loc
}

// Instrument returns the spec for sym or ErrUnknownInstrument.
func (p *BrokerProfile) Instrument(sym string) (InstrumentSpec, error) {
	spec, ok := p.Instruments[sym]
	if !ok {
		return InstrumentSpec{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, sym)
	}
	return spec, nil
}

// LotSizeUnits returns units per lot for sym, honoring the
// per-instrument override.
func (p *BrokerProfile) LotSizeUnits(sym string) float64 {
	if spec, ok := p.Instruments[sym]; ok && spec.LotSizeUnits > 0 {
		return spec.LotSizeUnits
	}
	return p.TradeUnit.LotSizeUnits
}

// LotStepUnits returns the lot step for sym in currency units.
func (p *BrokerProfile) LotStepUnits(sym string) float64 {
	return p.TradeUnit.LotStep * p.LotSizeUnits(sym)
}

// MinLotUnits returns the minimum tradable quantity for sym in
// currency units.
func (p *BrokerProfile) MinLotUnits(sym string) float64 {
	return p.TradeUnit.MinLot * p.LotSizeUnits(sym)
}

// SlippagePips returns the configured one-way slippage, zero when
// slippage accounting is disabled.
func (p *BrokerProfile) SlippagePips() float64 {
	if !p.Execution.SlippageEnabled {
		return 0
	}
	return p.Execution.SlippageOneWayPips
}
