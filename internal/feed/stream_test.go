package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestQuoteStream_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	stream, err := NewQuoteStream(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewQuoteStream: %v", err)
	}
	defer stream.Close()

	if stream.closed.Load() {
		t.Error("stream should not be closed")
	}
}

func TestQuoteStream_SubscribeAndReceive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Read subscribe request
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req streamRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Action != "subscribe" {
			t.Errorf("expected subscribe, got %s", req.Action)
			return
		}
		if len(req.Instruments) != 1 || req.Instruments[0] != "USD/JPY" {
			t.Errorf("unexpected instruments %v", req.Instruments)
			return
		}

		ticks := []streamMessage{
			{Type: "PRICE", Instrument: "USD_JPY", Bid: "150.095", Ask: "150.105", Time: "2025-04-08T12:00:01.500Z"},
			{Type: "HEARTBEAT", Time: "2025-04-08T12:00:02Z"},
			{Type: "PRICE", Instrument: "USD_JPY", Bid: "150.100", Ask: "150.112", Time: "2025-04-08T12:00:03Z"},
		}
		for _, tick := range ticks {
			if err := conn.WriteJSON(tick); err != nil {
				return
			}
		}

		// Keep connection open until the client closes
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	stream, err := NewQuoteStream(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewQuoteStream: %v", err)
	}
	defer stream.Close()

	quotes, err := stream.Subscribe("USD/JPY")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	recv := func() Quote {
		select {
		case q := <-quotes:
			return q
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for quote")
			return Quote{}
		}
	}

	q := recv()
	if q.Instrument != "USD/JPY" {
		t.Errorf("instrument: got %s", q.Instrument)
	}
	if q.Bid != 150.095 || q.Ask != 150.105 {
		t.Errorf("bid/ask: got %v/%v", q.Bid, q.Ask)
	}
	if got := q.Spread(); got < 0.0099 || got > 0.0101 {
		t.Errorf("spread: got %v", got)
	}
	want := time.Date(2025, 4, 8, 12, 0, 1, 500_000_000, time.UTC)
	if !q.Time.Equal(want) {
		t.Errorf("time: got %v, want %v", q.Time, want)
	}

	// Heartbeat is skipped; next delivery is the second tick.
	q = recv()
	if q.Bid != 150.100 || q.Ask != 150.112 {
		t.Errorf("second tick bid/ask: got %v/%v", q.Bid, q.Ask)
	}
}

func TestQuoteStream_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	stream, err := NewQuoteStream(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewQuoteStream: %v", err)
	}

	quotes, err := stream.Subscribe("EUR/USD")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Channel is closed after Close.
	select {
	case _, ok := <-quotes:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed")
	}

	// Double close is a no-op.
	if err := stream.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestQuoteStream_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	stream, err := NewQuoteStream(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewQuoteStream: %v", err)
	}
	stream.Close()

	if _, err := stream.Subscribe("USD/JPY"); err == nil {
		t.Error("expected error subscribing on closed stream")
	}
}

func TestQuoteStream_CustomConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultStreamConfig()
	cfg.PingInterval = 50 * time.Millisecond

	stream, err := NewQuoteStream(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("NewQuoteStream: %v", err)
	}
	defer stream.Close()

	if stream.config.PingInterval != 50*time.Millisecond {
		t.Errorf("ping interval: got %v", stream.config.PingInterval)
	}
}
