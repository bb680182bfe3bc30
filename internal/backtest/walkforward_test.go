package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

func TestWalkForwardChainsEquity(t *testing.T) {
	gate := &scriptedGate{signals: map[time.Time]*domain.Signal{
		barTime(2): longSignalAt(2), // segment 1: entry bar 4, stopped bar 5
	}}

	h4 := flatSeries(16)
	h4[5].Low = 149.50

	cfg := btConfig(t, gate)
	segments, err := WalkForward(cfg, h4, nil, 2)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	first, second := segments[0], segments[1]
	assert.Equal(t, barTime(0), first.From)
	assert.Equal(t, barTime(8), first.To) // bar 7 closes at bar 8's start
	assert.Equal(t, barTime(8), second.From)

	require.Len(t, first.Result.Trades, 1)
	assert.Less(t, first.Result.FinalEquity, cfg.InitialEquity)

	// Segment 2 starts from segment 1's final equity and trades nothing.
	assert.Empty(t, second.Result.Trades)
	assert.Equal(t, first.Result.FinalEquity, second.Result.FinalEquity)

	assert.NotEqual(t, first.Result.RunID, second.Result.RunID)
}

func TestWalkForwardValidatesSegments(t *testing.T) {
	cfg := btConfig(t, &scriptedGate{})

	_, err := WalkForward(cfg, flatSeries(4), nil, 0)
	assert.Error(t, err)

	_, err = WalkForward(cfg, flatSeries(2), nil, 4)
	assert.Error(t, err)
}
