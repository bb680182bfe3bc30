package feed

import (
	"sync"
	"time"
)

// DefaultQuoteMaxAge is how long an observed quote stays usable for
// spread checks. Live streams tick far more often than this; a quote
// older than the cutoff means the stream is stalled and the table band
// should decide instead.
const DefaultQuoteMaxAge = 30 * time.Second

// SpreadMonitor keeps the newest quote seen per instrument. It is
// passive: the caller pumps quotes in with Observe, typically from a
// QuoteStream channel, and readers ask for the latest fresh spread.
type SpreadMonitor struct {
	mu     sync.RWMutex
	maxAge time.Duration
	latest map[string]Quote
}

// NewSpreadMonitor creates a monitor. maxAge <= 0 selects
// DefaultQuoteMaxAge.
func NewSpreadMonitor(maxAge time.Duration) *SpreadMonitor {
	if maxAge <= 0 {
		maxAge = DefaultQuoteMaxAge
	}
	return &SpreadMonitor{
		maxAge: maxAge,
		latest: make(map[string]Quote),
	}
}

// Observe records a quote. Out-of-order quotes older than the stored
// one are dropped.
func (m *SpreadMonitor) Observe(q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.latest[q.Instrument]; ok && q.Time.Before(prev.Time) {
		return
	}
	m.latest[q.Instrument] = q
}

// LatestSpread returns the observed ask-bid spread in price units, or
// ok=false when no quote newer than the age cutoff exists.
func (m *SpreadMonitor) LatestSpread(instrument string, now time.Time) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.latest[instrument]
	if !ok || now.Sub(q.Time) > m.maxAge {
		return 0, false
	}
	return q.Spread(), true
}
