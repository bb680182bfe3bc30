package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

var entrySignalTime = time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC)

func longSignal(limit float64) *domain.Signal {
	return &domain.Signal{
		Direction:      domain.DirectionLong,
		Pattern:        "Bullish Engulfing",
		Time:           entrySignalTime,
		Close:          150.00,
		ReferencePrice: 149.95,
		Volatility:     0.50,
		EntryLimit:     limit,
	}
}

func TestFromConfig(t *testing.T) {
	p := config.DefaultStrategyParams()

	p.EntryMode = config.EntryDeferredMarket
	m, err := FromConfig(p)
	require.NoError(t, err)
	assert.IsType(t, &DeferredMarket{}, m)

	p.EntryMode = config.EntryOffsetLimit
	m, err = FromConfig(p)
	require.NoError(t, err)
	assert.IsType(t, &OffsetLimit{}, m)

	p.EntryMode = "MARKET_ON_CLOSE"
	_, err = FromConfig(p)
	assert.ErrorIs(t, err, ErrUnknownEntryMode)
}

func TestDeferredMarketFillsTwoBarsLater(t *testing.T) {
	m := &DeferredMarket{}
	order := m.Place("USD/JPY", longSignal(0), 10)
	assert.Equal(t, 12, order.TargetBarIndex)

	skipped := domain.Bar{Open: 150.20, High: 150.40, Low: 150.00, Close: 150.30}
	assert.Equal(t, StatusPending, m.Evaluate(order, 11, skipped).Status)

	fillBar := domain.Bar{Open: 150.10, High: 150.50, Low: 149.90, Close: 150.40}
	att := m.Evaluate(order, 12, fillBar)
	assert.Equal(t, StatusFilled, att.Status)
	assert.Equal(t, 150.10, att.FillMid)
}

func TestOffsetLimitShortExpiresUntouched(t *testing.T) {
	// EMA 163.15, volatility 0.50, offset 0.10 puts the resting price
	// at 163.20; a validity bar that never reaches it expires.
	m := &OffsetLimit{stopATRMult: 1.0}
	sig := &domain.Signal{
		Direction:      domain.DirectionShort,
		Time:           entrySignalTime,
		Close:          163.10,
		ReferencePrice: 163.15,
		Volatility:     0.50,
		EntryLimit:     163.20,
	}
	order := m.Place("EUR/JPY", sig, 10)
	assert.Equal(t, 11, order.TargetBarIndex)

	bar := domain.Bar{Open: 163.05, High: 163.15, Low: 162.80, Close: 162.90}
	assert.Equal(t, StatusExpired, m.Evaluate(order, 11, bar).Status)
}

func TestOffsetLimitLongFills(t *testing.T) {
	m := &OffsetLimit{stopATRMult: 1.0}
	order := m.Place("USD/JPY", longSignal(149.90), 10)

	bar := domain.Bar{Open: 150.05, High: 150.20, Low: 149.85, Close: 150.10}
	att := m.Evaluate(order, 11, bar)
	assert.Equal(t, StatusFilled, att.Status)
	assert.Equal(t, 149.90, att.FillMid)
}

func TestOffsetLimitDiscardsStopBreachingFillBar(t *testing.T) {
	// Limit 149.90, stop distance 0.50: a validity bar trading down
	// through 149.40 makes the intrabar sequence ambiguous.
	m := &OffsetLimit{stopATRMult: 1.0}
	order := m.Place("USD/JPY", longSignal(149.90), 10)

	bar := domain.Bar{Open: 150.05, High: 150.20, Low: 149.35, Close: 149.50}
	assert.Equal(t, StatusDiscarded, m.Evaluate(order, 11, bar).Status)
}

func TestOffsetLimitExpiresAfterValidityBar(t *testing.T) {
	m := &OffsetLimit{stopATRMult: 1.0}
	order := m.Place("USD/JPY", longSignal(149.90), 10)

	// Even a bar that would otherwise fill is too late.
	bar := domain.Bar{Open: 150.05, High: 150.20, Low: 149.85, Close: 150.10}
	assert.Equal(t, StatusExpired, m.Evaluate(order, 12, bar).Status)
}

func TestOffsetLimitShortDiscard(t *testing.T) {
	m := &OffsetLimit{stopATRMult: 1.0}
	sig := &domain.Signal{
		Direction:  domain.DirectionShort,
		Time:       entrySignalTime,
		Volatility: 0.50,
		EntryLimit: 163.20,
	}
	order := m.Place("EUR/JPY", sig, 10)

	bar := domain.Bar{Open: 163.10, High: 163.75, Low: 163.00, Close: 163.60}
	assert.Equal(t, StatusDiscarded, m.Evaluate(order, 11, bar).Status)
}
