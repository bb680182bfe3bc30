// Package signalgate turns confirmed bar windows into directional
// intents. It is a pure function of its input windows: callers filter
// both timeframes through marketclock before evaluation, and the gate
// never inspects wall-clock time itself.
package signalgate

import (
	"math"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/indicators"
)

// Gate evaluates signal conditions over confirmed bar windows.
type Gate interface {
	// Evaluate returns a signal for the newest bar of h4, or nil when
	// no setup is present. Both windows must contain only confirmed
	// bars, h4 the fast timeframe and daily the environment timeframe.
	Evaluate(h4, daily []domain.Bar) *domain.Signal
}

// PullbackGate is the trend-pullback signal: a daily trend environment
// (close vs EMA, EMA slope, ADX floor), an H4 pullback near the EMA,
// and a reversal candle trigger on the confirmed bar.
type PullbackGate struct {
	params config.StrategyParams
}

// NewPullbackGate creates a gate with the given tuning.
func NewPullbackGate(params config.StrategyParams) *PullbackGate {
	return &PullbackGate{params: params}
}

// Evaluate implements Gate.
func (g *PullbackGate) Evaluate(h4, daily []domain.Bar) *domain.Signal {
	p := g.params
	if len(h4) < p.ATRPeriod+2 {
		return nil
	}

	closes := indicators.Closes(h4)
	ema := indicators.EMA(closes, p.EMAPeriod)
	atr := indicators.ATR(h4, p.ATRPeriod)

	last := len(h4) - 1
	latest := h4[last]
	prev := h4[last-1]
	latestEMA := ema[last]
	latestATR := atr[last]

	if latestEMA == 0 || latestATR == 0 {
		return nil
	}

	longEnv := g.dailyEnvironment(daily, domain.DirectionLong)
	shortEnv := g.dailyEnvironment(daily, domain.DirectionShort)
	if !longEnv && !shortEnv {
		return nil
	}

	// H4 setup: price pulled back to within DistanceATRRatio ATRs of
	// the EMA.
	if math.Abs(latest.Close-latestEMA) > p.DistanceATRRatio*latestATR {
		return nil
	}

	if longEnv {
		var pattern string
		switch {
		case isBullishEngulfing(prev, latest):
			pattern = PatternBullishEngulfing
		case isBullishHammer(latest):
			pattern = PatternBullishHammer
		default:
			return nil
		}
		return &domain.Signal{
			Direction:      domain.DirectionLong,
			Pattern:        pattern,
			Time:           latest.Start,
			Close:          latest.Close,
			ReferencePrice: latestEMA,
			Volatility:     latestATR,
			EntryLimit:     latestEMA - p.LimitATROffset*latestATR,
		}
	}

	var pattern string
	switch {
	case isBearishEngulfing(prev, latest):
		pattern = PatternBearishEngulfing
	case isShootingStar(latest):
		pattern = PatternShootingStar
	default:
		return nil
	}
	return &domain.Signal{
		Direction:      domain.DirectionShort,
		Pattern:        pattern,
		Time:           latest.Start,
		Close:          latest.Close,
		ReferencePrice: latestEMA,
		Volatility:     latestATR,
		EntryLimit:     latestEMA + p.LimitATROffset*latestATR,
	}
}

// dailyEnvironment checks the environment timeframe: close on the
// trend side of the EMA, EMA sloping with the trend, and ADX at or
// above the threshold.
func (g *PullbackGate) dailyEnvironment(daily []domain.Bar, dir domain.Direction) bool {
	p := g.params
	if len(daily) < 2*p.ADXPeriod+2 {
		return false
	}

	closes := indicators.Closes(daily)
	ema := indicators.EMA(closes, p.EMAPeriod)
	adx := indicators.ADX(daily, p.ADXPeriod)

	last := len(daily) - 1
	if ema[last] == 0 || ema[last-1] == 0 {
		return false
	}
	if adx[last] < p.ADXThreshold {
		return false
	}

	if dir == domain.DirectionLong {
		return daily[last].Close > ema[last] && ema[last] > ema[last-1]
	}
	return daily[last].Close < ema[last] && ema[last] < ema[last-1]
}

var _ Gate = (*PullbackGate)(nil)
