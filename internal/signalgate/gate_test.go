package signalgate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/indicators"
)

var gateStart = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

// trendingDaily builds a steadily moving daily series whose ADX reads
// high and whose EMA slopes with the move.
func trendingDaily(n int, step float64) []domain.Bar {
	bars := make([]domain.Bar, n)
	price := 150.0
	for i := range bars {
		bars[i] = domain.Bar{
			Start: gateStart.AddDate(0, 0, i),
			Open:  price,
			High:  price + math.Abs(step) + 0.1,
			Low:   price - 0.1,
			Close: price + step,
		}
		if step < 0 {
			bars[i].High = price + 0.1
			bars[i].Low = price + step - 0.1
		}
		price += step
	}
	return bars
}

// flatH4 builds a sideways H4 series hugging 150.00 with a uniform
// 0.30 range, leaving the last two bars for the caller to shape.
func flatH4(n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Start: gateStart.Add(time.Duration(i) * 4 * time.Hour),
			Open:  149.95,
			High:  150.15,
			Low:   149.85,
			Close: 150.05,
		}
	}
	return bars
}

func TestPullbackGateLongEngulfing(t *testing.T) {
	p := config.DefaultStrategyParams()
	gate := NewPullbackGate(p)

	daily := trendingDaily(40, 0.5)
	h4 := flatH4(40)
	last := len(h4) - 1
	h4[last-1].Open, h4[last-1].Close = 150.05, 149.95
	h4[last].Open, h4[last].Close = 149.94, 150.06

	sig := gate.Evaluate(h4, daily)
	require.NotNil(t, sig)
	assert.Equal(t, domain.DirectionLong, sig.Direction)
	assert.Equal(t, PatternBullishEngulfing, sig.Pattern)
	assert.Equal(t, h4[last].Start, sig.Time)
	assert.Equal(t, h4[last].Close, sig.Close)

	ema := indicators.EMA(indicators.Closes(h4), p.EMAPeriod)[last]
	atr := indicators.ATR(h4, p.ATRPeriod)[last]
	assert.InDelta(t, ema, sig.ReferencePrice, 1e-9)
	assert.InDelta(t, atr, sig.Volatility, 1e-9)
	assert.InDelta(t, ema-p.LimitATROffset*atr, sig.EntryLimit, 1e-9)
}

func TestPullbackGateLongHammer(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	daily := trendingDaily(40, 0.5)
	h4 := flatH4(40)
	last := len(h4) - 1
	// Prev bullish, so no engulfing; last bar is a hammer.
	h4[last] = domain.Bar{
		Start: h4[last].Start,
		Open:  150.00,
		High:  150.03,
		Low:   149.90,
		Close: 150.02,
	}

	sig := gate.Evaluate(h4, daily)
	require.NotNil(t, sig)
	assert.Equal(t, PatternBullishHammer, sig.Pattern)
}

func TestPullbackGateShortEngulfing(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	daily := trendingDaily(40, -0.5)
	h4 := flatH4(40)
	last := len(h4) - 1
	h4[last].Open, h4[last].Close = 150.06, 149.94

	sig := gate.Evaluate(h4, daily)
	require.NotNil(t, sig)
	assert.Equal(t, domain.DirectionShort, sig.Direction)
	assert.Equal(t, PatternBearishEngulfing, sig.Pattern)

	p := config.DefaultStrategyParams()
	ema := indicators.EMA(indicators.Closes(h4), p.EMAPeriod)[last]
	atr := indicators.ATR(h4, p.ATRPeriod)[last]
	assert.InDelta(t, ema+p.LimitATROffset*atr, sig.EntryLimit, 1e-9)
}

func TestPullbackGateRejectsFlatEnvironment(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	daily := trendingDaily(40, 0.0)
	h4 := flatH4(40)
	last := len(h4) - 1
	h4[last-1].Open, h4[last-1].Close = 150.05, 149.95
	h4[last].Open, h4[last].Close = 149.94, 150.06

	assert.Nil(t, gate.Evaluate(h4, daily))
}

func TestPullbackGateRejectsFarFromEMA(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	daily := trendingDaily(40, 0.5)
	h4 := flatH4(40)
	last := len(h4) - 1
	// Engulfing shape, but stretched well above the pullback band.
	h4[last-1] = domain.Bar{
		Start: h4[last-1].Start,
		Open:  152.05,
		High:  152.15,
		Low:   151.85,
		Close: 151.95,
	}
	h4[last] = domain.Bar{
		Start: h4[last].Start,
		Open:  151.94,
		High:  152.20,
		Low:   151.90,
		Close: 152.06,
	}

	assert.Nil(t, gate.Evaluate(h4, daily))
}

func TestPullbackGateRejectsNoPattern(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	daily := trendingDaily(40, 0.5)
	h4 := flatH4(40)

	// All bars are plain bullish candles without hammer wicks.
	assert.Nil(t, gate.Evaluate(h4, daily))
}

func TestPullbackGateShortWindows(t *testing.T) {
	gate := NewPullbackGate(config.DefaultStrategyParams())

	assert.Nil(t, gate.Evaluate(flatH4(5), trendingDaily(40, 0.5)))
	assert.Nil(t, gate.Evaluate(flatH4(40), trendingDaily(5, 0.5)))
}
