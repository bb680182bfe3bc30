// Package marketclock decides whether a bar is closed relative to an
// evaluation instant. It is the single source of truth for look-ahead
// avoidance: every signal evaluation and every daily-environment check
// filters its input series through this package first.
package marketclock

import (
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// IsConfirmed reports whether a bar starting at start with the given
// duration is fully closed at eval. A bar is confirmed exactly when
// start+duration <= eval; the boundary instant itself counts as closed.
func IsConfirmed(start time.Time, duration time.Duration, eval time.Time) bool {
	return !start.Add(duration).After(eval)
}

// BarConfirmed reports whether bar is closed at eval for its timeframe.
func BarConfirmed(bar domain.Bar, tf domain.Timeframe, eval time.Time) bool {
	return IsConfirmed(bar.Start, tf.Duration(), eval)
}

// Confirmed returns the prefix of bars closed at eval. Bars must be in
// ascending start order; the result aliases the input slice.
func Confirmed(bars []domain.Bar, tf domain.Timeframe, eval time.Time) []domain.Bar {
	n := LastConfirmedIndex(bars, tf, eval) + 1
	return bars[:n]
}

// LastConfirmedIndex returns the index of the newest bar closed at
// eval, or -1 when none is.
func LastConfirmedIndex(bars []domain.Bar, tf domain.Timeframe, eval time.Time) int {
	d := tf.Duration()
	for i := len(bars) - 1; i >= 0; i-- {
		if IsConfirmed(bars[i].Start, d, eval) {
			return i
		}
	}
	return -1
}
