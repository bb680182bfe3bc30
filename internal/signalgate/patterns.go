package signalgate

import "github.com/beatitudeps-blip/fx-alert/internal/domain"

// Pattern labels attached to signals.
const (
	PatternBullishEngulfing = "Bullish Engulfing"
	PatternBearishEngulfing = "Bearish Engulfing"
	PatternBullishHammer    = "Bullish Hammer"
	PatternShootingStar     = "Bearish Shooting Star"
)

// isBullishEngulfing reports whether curr is a bullish candle whose
// body engulfs the preceding bearish one.
func isBullishEngulfing(prev, curr domain.Bar) bool {
	prevBearish := prev.Close < prev.Open
	currBullish := curr.Close > curr.Open
	engulfing := curr.Close >= prev.Open && curr.Open <= prev.Close
	return prevBearish && currBullish && engulfing
}

func isBearishEngulfing(prev, curr domain.Bar) bool {
	prevBullish := prev.Close > prev.Open
	currBearish := curr.Close < curr.Open
	engulfing := curr.Close <= prev.Open && curr.Open >= prev.Close
	return prevBullish && currBearish && engulfing
}

// isBullishHammer reports a bullish candle with a lower wick at least
// 1.5x its body and twice its upper wick.
func isBullishHammer(bar domain.Bar) bool {
	body := bar.Close - bar.Open
	if body <= 0 {
		return false
	}
	lowerWick := min(bar.Open, bar.Close) - bar.Low
	upperWick := bar.High - max(bar.Open, bar.Close)
	return lowerWick >= body*1.5 && lowerWick >= upperWick*2.0
}

// isShootingStar is the bearish mirror of isBullishHammer.
func isShootingStar(bar domain.Bar) bool {
	body := bar.Open - bar.Close
	if body <= 0 {
		return false
	}
	lowerWick := min(bar.Open, bar.Close) - bar.Low
	upperWick := bar.High - max(bar.Open, bar.Close)
	return upperWick >= body*1.5 && upperWick >= lowerWick*2.0
}
