package structure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

var swingStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyBars(highs, lows []float64) []domain.Bar {
	bars := make([]domain.Bar, len(highs))
	for i := range bars {
		bars[i] = domain.Bar{
			Start: swingStart.AddDate(0, 0, i),
			Open:  (highs[i] + lows[i]) / 2,
			High:  highs[i],
			Low:   lows[i],
			Close: (highs[i] + lows[i]) / 2,
		}
	}
	return bars
}

func TestSwingHighsDetection(t *testing.T) {
	bars := dailyBars(
		[]float64{150, 152, 151, 153, 155, 154, 156},
		[]float64{149, 150, 149, 151, 153, 152, 154},
	)

	highs := SwingHighs(bars)
	require.Len(t, highs, 2)
	assert.Equal(t, 152.0, highs[0].Price)
	assert.Equal(t, bars[1].Start, highs[0].Time)
	assert.Equal(t, 155.0, highs[1].Price)
}

func TestSwingLowsDetection(t *testing.T) {
	bars := dailyBars(
		[]float64{152, 151, 153, 152, 154, 153, 155},
		[]float64{150, 148, 150, 150.5, 151, 148.5, 152},
	)

	lows := SwingLows(bars)
	require.Len(t, lows, 2)
	assert.Equal(t, 148.0, lows[0].Price)
	assert.Equal(t, 148.5, lows[1].Price)
}

func TestSwingEdgesNeverQualify(t *testing.T) {
	bars := dailyBars(
		[]float64{160, 150, 159},
		[]float64{140, 148, 141},
	)
	assert.Empty(t, SwingHighs(bars))
	assert.Empty(t, SwingLows(bars))
}

func TestTargetUsesStructureInsideCap(t *testing.T) {
	// Swing high at 152.0 on day 3, well inside 3R of a 0.5 stop.
	bars := dailyBars(
		[]float64{150, 151, 152, 151.5, 151, 151.2, 151.4},
		[]float64{149, 150, 151, 150.5, 150, 150.2, 150.4},
	)
	at := swingStart.AddDate(0, 0, 10)

	price, source := Target(bars, at, 151.0, 150.5, domain.DirectionLong, 3.0, 20)
	assert.Equal(t, 152.0, price)
	assert.Equal(t, domain.TP2SourceStructure, source)
}

func TestTargetCapsDistantStructure(t *testing.T) {
	// Swing high at 158.0 is past entry + 3R = 152.5.
	bars := dailyBars(
		[]float64{150, 158, 157, 156, 155, 154, 153},
		[]float64{149, 150, 150.5, 150.5, 150, 150.2, 150.4},
	)
	at := swingStart.AddDate(0, 0, 10)

	price, source := Target(bars, at, 151.0, 150.5, domain.DirectionLong, 3.0, 20)
	assert.InDelta(t, 152.5, price, 1e-9)
	assert.Equal(t, domain.TP2SourceRiskCapped, source)
}

func TestTargetCapsWhenNoStructure(t *testing.T) {
	// Monotonic highs produce no swing points.
	bars := dailyBars(
		[]float64{150, 151, 152, 153, 154, 155, 156},
		[]float64{149, 150, 151, 152, 153, 154, 155},
	)
	at := swingStart.AddDate(0, 0, 10)

	price, source := Target(bars, at, 151.0, 150.5, domain.DirectionLong, 3.0, 20)
	assert.InDelta(t, 152.5, price, 1e-9)
	assert.Equal(t, domain.TP2SourceRiskCapped, source)
}

func TestTargetIgnoresSwingsOutsideLookback(t *testing.T) {
	bars := dailyBars(
		[]float64{150, 152, 151, 151.2, 151.1, 151.3, 151.2},
		[]float64{149, 150, 150.5, 150.4, 150.3, 150.5, 150.4},
	)
	// Evaluation point 30 days out; every detected swing is stale.
	at := swingStart.AddDate(0, 0, 30)

	price, source := Target(bars, at, 151.0, 150.5, domain.DirectionLong, 3.0, 20)
	assert.InDelta(t, 152.5, price, 1e-9)
	assert.Equal(t, domain.TP2SourceRiskCapped, source)
}

func TestTargetShortSide(t *testing.T) {
	// Swing low at 149.5 inside entry - 3R = 149.0.
	bars := dailyBars(
		[]float64{152, 151, 152, 151.5, 151.8, 151.9, 152.0},
		[]float64{151, 150, 149.5, 150.5, 150.8, 150.9, 151.0},
	)
	at := swingStart.AddDate(0, 0, 10)

	price, source := Target(bars, at, 150.5, 151.0, domain.DirectionShort, 3.0, 20)
	assert.Equal(t, 149.5, price)
	assert.Equal(t, domain.TP2SourceStructure, source)
}
