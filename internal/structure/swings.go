// Package structure derives price targets from daily swing points.
package structure

import (
	"math"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// SwingPoint is one detected pivot on the daily series.
type SwingPoint struct {
	Time  time.Time
	Price float64
}

// SwingHighs returns the daily pivots where the high exceeds both
// neighbors. First and last bars can never qualify.
func SwingHighs(bars []domain.Bar) []SwingPoint {
	var out []SwingPoint
	for i := 1; i < len(bars)-1; i++ {
		if bars[i].High > bars[i-1].High && bars[i].High > bars[i+1].High {
			out = append(out, SwingPoint{Time: bars[i].Start, Price: bars[i].High})
		}
	}
	return out
}

// SwingLows returns the daily pivots where the low undercuts both
// neighbors.
func SwingLows(bars []domain.Bar) []SwingPoint {
	var out []SwingPoint
	for i := 1; i < len(bars)-1; i++ {
		if bars[i].Low < bars[i-1].Low && bars[i].Low < bars[i+1].Low {
			out = append(out, SwingPoint{Time: bars[i].Start, Price: bars[i].Low})
		}
	}
	return out
}

// nearest picks the most recent swing inside the lookback window that
// closed strictly before at.
func nearest(points []SwingPoint, at time.Time, lookbackDays int) (float64, bool) {
	from := at.AddDate(0, 0, -lookbackDays)
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		if !p.Time.Before(at) {
			continue
		}
		if p.Time.Before(from) {
			break
		}
		return p.Price, true
	}
	return 0, false
}

// Target resolves the second take-profit for an open position against
// the daily structure. A swing point inside the risk cap is taken as
// is; a missing swing and a swing beyond the cap both collapse to the
// capped price with TP2SourceRiskCapped.
func Target(daily []domain.Bar, at time.Time, entry, stop float64, dir domain.Direction, maxR float64, lookbackDays int) (float64, string) {
	capDistance := maxR * math.Abs(entry-stop)

	if dir == domain.DirectionLong {
		capped := entry + capDistance
		if swing, ok := nearest(SwingHighs(daily), at, lookbackDays); ok && swing < capped {
			return swing, domain.TP2SourceStructure
		}
		return capped, domain.TP2SourceRiskCapped
	}

	capped := entry - capDistance
	if swing, ok := nearest(SwingLows(daily), at, lookbackDays); ok && swing > capped {
		return swing, domain.TP2SourceStructure
	}
	return capped, domain.TP2SourceRiskCapped
}
