package notify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/memory"
)

func testOrder() *domain.AdvisoryOrder {
	return &domain.AdvisoryOrder{
		Instrument: "USD/JPY",
		Direction:  domain.DirectionLong,
		Pattern:    "ENGULFING",
		SignalTime: time.Date(2025, 4, 8, 12, 0, 0, 0, time.UTC),
		EntryPrice: 150.10,
		StopPrice:  149.60,
		TP1Price:   150.85,
		TP2Price:   151.60,
		TP2Source:  domain.TP2SourceFixedR,
		Units:      5000,
		Lots:       0.05,
		Risk:       2510,
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestWebhookSender_PostsPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL)
	require.NoError(t, sender.Send(context.Background(), testOrder()))

	assert.Equal(t, "USD/JPY", got.Instrument)
	assert.Equal(t, "LONG", got.Direction)
	assert.Equal(t, "2025-04-08T12:00:00Z", got.SignalTime)
	assert.InDelta(t, 150.10, got.EntryPrice, 1e-9)
	assert.InDelta(t, 0.05, got.Lots, 1e-9)
	assert.Empty(t, got.SkipReason)
}

func TestWebhookSender_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	require.NoError(t, sender.Send(context.Background(), testOrder()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookSender_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL, WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	err := sender.Send(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestDispatcher_SendsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(NewWebhookSender(srv.URL), memory.NewNotifyStateStore(), discardLogger())

	sent, err := d.Dispatch(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, sent)

	// Same signal again: deduped, no second HTTP call.
	sent, err = d.Dispatch(context.Background(), testOrder())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcher_FailedSendLeavesNoMarker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	state := memory.NewNotifyStateStore()
	d := NewDispatcher(NewWebhookSender(srv.URL, WithMaxRetries(0)), state, discardLogger())

	_, err := d.Dispatch(context.Background(), testOrder())
	require.Error(t, err)

	// Next cycle retries because no dedup marker was written.
	sent, err := d.Dispatch(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestDispatcher_DistinctSignalsBothSent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(NewWebhookSender(srv.URL), memory.NewNotifyStateStore(), discardLogger())

	first := testOrder()
	second := testOrder()
	second.SignalTime = first.SignalTime.Add(4 * time.Hour)

	sent, err := d.Dispatch(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = d.Dispatch(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDedupKey(t *testing.T) {
	order := testOrder()
	key := DedupKey(order)
	assert.Equal(t, "USD/JPY|LONG|1744113600", key)

	other := testOrder()
	other.Direction = domain.DirectionShort
	assert.NotEqual(t, key, DedupKey(other))
}
