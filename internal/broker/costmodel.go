// Package broker maps mid prices to executable prices and computes
// per-fill costs. All bid/ask derivation lives behind CostModel so the
// execution-price logic cannot drift between entry and exit call sites.
package broker

import (
	"fmt"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// CostModel implements the broker cost rules of a validated profile:
// time-of-day spread bands, fixed slippage, swap accrual and
// maintenance-window non-tradability.
type CostModel struct {
	profile *config.BrokerProfile
}

// NewCostModel wraps a validated broker profile.
func NewCostModel(profile *config.BrokerProfile) *CostModel {
	return &CostModel{profile: profile}
}

// SpreadPips returns the advertised spread for sym at t: the widened
// band inside the pre-open/post-close windows, the fixed band
// otherwise. Unknown instruments are a configuration error.
func (m *CostModel) SpreadPips(sym string, t time.Time) (float64, error) {
	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return 0, err
	}
	if m.inWidenedWindow(t) {
		return spec.Spread.Widened, nil
	}
	return spec.Spread.Fixed, nil
}

// ExecutionPrice converts a mid price into the opening execution price:
// LONG pays half-spread plus slippage above mid, SHORT receives them
// below.
func (m *CostModel) ExecutionPrice(mid float64, dir domain.Direction, sym string, t time.Time) (float64, error) {
	halfSpread, slip, err := m.priceAdjust(sym, t)
	if err != nil {
		return 0, err
	}
	if dir == domain.DirectionLong {
		return mid + halfSpread + slip, nil
	}
	return mid - halfSpread - slip, nil
}

// ExitPrice converts a mid price into the closing execution price for a
// position opened in dir; the adjustment is the mirror of
// ExecutionPrice.
func (m *CostModel) ExitPrice(mid float64, dir domain.Direction, sym string, t time.Time) (float64, error) {
	halfSpread, slip, err := m.priceAdjust(sym, t)
	if err != nil {
		return 0, err
	}
	if dir == domain.DirectionLong {
		return mid - halfSpread - slip, nil
	}
	return mid + halfSpread + slip, nil
}

func (m *CostModel) priceAdjust(sym string, t time.Time) (halfSpread, slip float64, err error) {
	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return 0, 0, err
	}
	spread, err := m.SpreadPips(sym, t)
	if err != nil {
		return 0, 0, err
	}
	halfSpread = spread * spec.PipSize / 2
	slip = m.profile.SlippagePips() * spec.PipSize
	return halfSpread, slip, nil
}

// FillCosts returns the spread and slippage cost of filling units at t,
// in account currency.
func (m *CostModel) FillCosts(units float64, sym string, t time.Time) (spreadCost, slippageCost float64, err error) {
	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return 0, 0, err
	}
	spread, err := m.SpreadPips(sym, t)
	if err != nil {
		return 0, 0, err
	}
	spreadCost = units * spread * spec.PipSize
	slippageCost = units * m.profile.SlippagePips() * spec.PipSize
	return spreadCost, slippageCost, nil
}

// Swap returns the carry for holding units in dir over holdingDays,
// positive = credit. Zero when swap accounting is disabled.
func (m *CostModel) Swap(units float64, dir domain.Direction, sym string, holdingDays int) (float64, error) {
	if m.profile.SwapMode == config.SwapModeIgnore {
		return 0, nil
	}
	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return 0, err
	}

	perLot := spec.Swap.Long
	if dir == domain.DirectionShort {
		perLot = spec.Swap.Short
	}
	lots := units / m.profile.LotSizeUnits(sym)
	return perLot * lots * float64(holdingDays), nil
}

// IsTradable reports whether fills may occur at t. False inside the
// daily and weekly maintenance windows.
func (m *CostModel) IsTradable(t time.Time) bool {
	return !m.inMaintenanceWindow(t)
}

// ShouldSkipEntry is the spread-filter entry veto: true when the
// current spread exceeds the fixed band by more than the configured
// multiplier. Maintenance is reported through IsTradable, not here.
func (m *CostModel) ShouldSkipEntry(sym string, t time.Time) (bool, string, error) {
	if !m.profile.Execution.SpreadFilterEnabled {
		return false, "", nil
	}

	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return false, "", err
	}
	current, err := m.SpreadPips(sym, t)
	if err != nil {
		return false, "", err
	}

	limit := spec.Spread.Fixed * m.profile.Execution.SpreadFilterMaxFactor
	if current > limit {
		return true, fmt.Sprintf("spread %.1f pips > %.1f pips", current, limit), nil
	}
	return false, "", nil
}

// ObservedSpreadVeto applies the same filter to a spread measured from
// a live quote instead of the table band. The spread is given in price
// units (ask minus bid) and compared against the fixed band times the
// configured multiplier.
func (m *CostModel) ObservedSpreadVeto(sym string, spread float64) (bool, string, error) {
	if !m.profile.Execution.SpreadFilterEnabled {
		return false, "", nil
	}

	spec, err := m.profile.Instrument(sym)
	if err != nil {
		return false, "", err
	}

	spreadPips := spread / spec.PipSize
	limit := spec.Spread.Fixed * m.profile.Execution.SpreadFilterMaxFactor
	if spreadPips > limit {
		return true, fmt.Sprintf("live spread %.1f pips > %.1f pips", spreadPips, limit), nil
	}
	return false, "", nil
}

// UnitsToLots converts a quantity into lots for sym.
func (m *CostModel) UnitsToLots(units float64, sym string) float64 {
	return units / m.profile.LotSizeUnits(sym)
}

// SlippagePips returns the configured one-way slippage in pips.
func (m *CostModel) SlippagePips() float64 {
	return m.profile.SlippagePips()
}
