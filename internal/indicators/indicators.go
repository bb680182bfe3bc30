// Package indicators provides the trend and volatility measures used
// by the signal gate. All functions are pure and operate on full
// series; callers are responsible for feeding only confirmed bars.
package indicators

import (
	"math"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// EMA computes the exponential moving average, seeded with a simple MA
// over the first period values. Indices below period-1 are zero.
func EMA(data []float64, period int) []float64 {
	ema := make([]float64, len(data))
	if len(data) < period || period <= 0 {
		return ema
	}

	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < len(data); i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}

	return ema
}

// ATR computes the Wilder-smoothed average true range of bars.
// Indices below period-1 are zero.
func ATR(bars []domain.Bar, period int) []float64 {
	n := len(bars)
	atr := make([]float64, n)
	if n < period+1 || period <= 0 {
		return atr
	}

	trs := make([]float64, n)
	trs[0] = bars[0].High - bars[0].Low
	for i := 1; i < n; i++ {
		trs[i] = trueRange(bars[i], bars[i-1].Close)
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trs[i]
	}
	atr[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + trs[i]) / float64(period)
	}

	return atr
}

func trueRange(bar domain.Bar, prevClose float64) float64 {
	hl := bar.High - bar.Low
	hc := math.Abs(bar.High - prevClose)
	lc := math.Abs(bar.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// ADX computes the Wilder average directional index. Values before the
// 2*period warmup are zero.
func ADX(bars []domain.Bar, period int) []float64 {
	n := len(bars)
	adx := make([]float64, n)
	if n < 2*period+1 || period <= 0 {
		return adx
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs := make([]float64, n)

	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low

		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		trs[i] = trueRange(bars[i], bars[i-1].Close)
	}

	// Wilder smoothing of TR and the directional movements.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += trs[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, n)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]

		if smTR == 0 {
			continue
		}
		plusDI := 100 * smPlus / smTR
		minusDI := 100 * smMinus / smTR
		if plusDI+minusDI == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	// First ADX is the mean of the first period DX values.
	sum := 0.0
	for i := period + 1; i <= 2*period; i++ {
		sum += dx[i]
	}
	adx[2*period] = sum / float64(period)

	for i := 2*period + 1; i < n; i++ {
		adx[i] = (adx[i-1]*float64(period-1) + dx[i]) / float64(period)
	}

	return adx
}

// Closes extracts the close series of bars.
func Closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
