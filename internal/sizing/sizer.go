// Package sizing converts an equity/risk budget into a tradable
// quantity. Rounding always goes down and acceptance is checked twice
// against the nominal budget, which is what keeps realized risk at
// zero violations across a run.
package sizing

import (
	"errors"
	"math"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
)

// SafetyMarginFrac bounds how far a stop fill's spread/slippage may
// push the total loss past the nominal budget before the audit check
// treats it as a violation. Sizing itself never allocates above the
// nominal budget; the margin is tolerance on the audit side only.
const SafetyMarginFrac = 0.10

// ErrInvalidBudget is returned for non-positive equity or risk fraction.
var ErrInvalidBudget = errors.New("invalid sizing budget")

// Result is the outcome of one sizing decision. Valid=false is a
// normal "no trade" outcome, not an error.
type Result struct {
	Units        float64
	RealizedRisk float64
	Valid        bool
}

// WithinBudget reports whether a realized risk respects the budget with
// the documented safety margin. Used by the driver as a fatal
// post-sizing audit; by construction Size never produces a violation.
func WithinBudget(realizedRisk, budget float64) bool {
	return realizedRisk <= budget*(1+SafetyMarginFrac)
}

// Sizer sizes positions against a broker profile's lot granularity.
type Sizer struct {
	profile *config.BrokerProfile
}

// NewSizer creates a Sizer for the given profile.
func NewSizer(profile *config.BrokerProfile) *Sizer {
	return &Sizer{profile: profile}
}

// Size computes the tradable quantity for the given equity, risk
// fraction and entry/stop pair.
//
// Stages:
//  1. raw = equity*riskFraction / |entry-stop|, floored to the lot step
//     (never rounded up: the budget is a ceiling)
//  2. reject below the minimum lot
//  3. recompute realized risk from the rounded quantity; if it exceeds
//     the budget, step down one lot step and recheck once, rejecting if
//     the step-down lands below the minimum lot or is still over
//
// A zero risk distance is rejected immediately (undefined risk).
func (s *Sizer) Size(equity, riskFraction, entryPrice, stopPrice float64, sym string) (Result, error) {
	if equity <= 0 || riskFraction <= 0 {
		return Result{}, ErrInvalidBudget
	}

	riskPerUnit := math.Abs(entryPrice - stopPrice)
	if riskPerUnit <= 0 {
		return Result{}, nil
	}

	budget := equity * riskFraction
	step := s.profile.LotStepUnits(sym)
	minUnits := s.profile.MinLotUnits(sym)

	units := math.Floor(budget/riskPerUnit/step) * step
	if units < minUnits {
		return Result{}, nil
	}

	// Floating-point slack in the division above can leave the floored
	// quantity one step too high; recheck on the recomputed risk.
	realized := units * riskPerUnit
	if realized > budget {
		units -= step
		if units < minUnits {
			return Result{}, nil
		}
		realized = units * riskPerUnit
		if realized > budget {
			return Result{}, nil
		}
	}

	return Result{Units: units, RealizedRisk: realized, Valid: true}, nil
}
