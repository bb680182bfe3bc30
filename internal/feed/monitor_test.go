package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpreadMonitorLatestSpread(t *testing.T) {
	base := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)
	m := NewSpreadMonitor(30 * time.Second)

	m.Observe(Quote{Instrument: "USD/JPY", Bid: 150.10, Ask: 150.104, Time: base})

	spread, ok := m.LatestSpread("USD/JPY", base.Add(10*time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 0.004, spread, 1e-9)

	_, ok = m.LatestSpread("EUR/JPY", base)
	assert.False(t, ok, "instrument never observed")
}

func TestSpreadMonitorExpiresStaleQuotes(t *testing.T) {
	base := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)
	m := NewSpreadMonitor(30 * time.Second)

	m.Observe(Quote{Instrument: "USD/JPY", Bid: 150.10, Ask: 150.104, Time: base})

	_, ok := m.LatestSpread("USD/JPY", base.Add(31*time.Second))
	assert.False(t, ok, "quote older than max age")
}

func TestSpreadMonitorDropsOutOfOrderQuotes(t *testing.T) {
	base := time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC)
	m := NewSpreadMonitor(time.Minute)

	m.Observe(Quote{Instrument: "USD/JPY", Bid: 150.10, Ask: 150.104, Time: base})
	// Delivered late, carries an older timestamp.
	m.Observe(Quote{Instrument: "USD/JPY", Bid: 150.00, Ask: 150.020, Time: base.Add(-5 * time.Second)})

	spread, ok := m.LatestSpread("USD/JPY", base.Add(time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 0.004, spread, 1e-9)
}
