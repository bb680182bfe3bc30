package feed

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/memory"
)

// stubSource serves a fixed bar window, like a provider returning the
// latest N candles regardless of what the cache already holds.
type stubSource struct {
	bars []domain.Bar
	err  error
}

func (s *stubSource) Candles(ctx context.Context, instrument string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func h4Bar(start time.Time, close float64) domain.Bar {
	return domain.Bar{Start: start, Open: close - 0.2, High: close + 0.1, Low: close - 0.3, Close: close}
}

func TestRefresher_InsertsOnlyNewBars(t *testing.T) {
	base := time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)
	store := memory.NewBarStore()
	ctx := context.Background()

	// Cache already holds the first two bars.
	seed := []domain.Bar{h4Bar(base, 150.1), h4Bar(base.Add(4*time.Hour), 150.3)}
	require.NoError(t, store.InsertBulk(ctx, "USD/JPY", domain.TimeframeH4, seed))

	// Provider window overlaps the cache by two bars.
	src := &stubSource{bars: []domain.Bar{
		h4Bar(base, 150.1),
		h4Bar(base.Add(4*time.Hour), 150.3),
		h4Bar(base.Add(8*time.Hour), 150.7),
	}}

	r := NewRefresher(src, store, log.New(io.Discard, "", 0))
	n, err := r.Refresh(ctx, "USD/JPY", domain.TimeframeH4, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := store.GetLatest(ctx, "USD/JPY", domain.TimeframeH4, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, base.Add(8*time.Hour), latest[0].Start)

	// Same window again: nothing new.
	n, err = r.Refresh(ctx, "USD/JPY", domain.TimeframeH4, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRefresher_EmptyCacheTakesAll(t *testing.T) {
	base := time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)
	src := &stubSource{bars: []domain.Bar{
		h4Bar(base, 150.1),
		h4Bar(base.Add(4*time.Hour), 150.3),
	}}

	r := NewRefresher(src, memory.NewBarStore(), log.New(io.Discard, "", 0))
	n, err := r.Refresh(context.Background(), "USD/JPY", domain.TimeframeH4, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRefresher_SourceError(t *testing.T) {
	src := &stubSource{err: errors.New("provider down")}
	r := NewRefresher(src, memory.NewBarStore(), log.New(io.Discard, "", 0))

	_, err := r.Refresh(context.Background(), "USD/JPY", domain.TimeframeH4, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch candles")
}
