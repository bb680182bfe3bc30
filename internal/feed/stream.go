package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Quote is one bid/ask tick from the streaming endpoint.
type Quote struct {
	Instrument string
	Bid        float64
	Ask        float64
	Time       time.Time
}

// Spread returns the quoted spread in price units.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// StreamConfig configures the streaming quote client.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// OnReconnect, when set, is called after every successful redial.
	OnReconnect func()
}

// DefaultStreamConfig returns default streaming configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// QuoteStream delivers live bid/ask ticks over a WebSocket connection.
// It reconnects with exponential backoff and resubscribes the active
// instrument set after a drop. Ticks missed during a reconnect window
// are gone; bar construction relies on the candle REST client, not on
// tick replay.
type QuoteStream struct {
	endpoint string
	config   StreamConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// instruments holds the active subscription set for replay after
	// reconnect.
	instruments   []string
	instrumentsMu sync.RWMutex

	quotes chan Quote

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewQuoteStream connects to the streaming endpoint and starts the
// reader and ping loops.
func NewQuoteStream(ctx context.Context, endpoint string, config *StreamConfig) (*QuoteStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &QuoteStream{
		endpoint: endpoint,
		config:   cfg,
		quotes:   make(chan Quote, 1024),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

func (s *QuoteStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe adds instruments to the stream. The returned channel is
// shared across all subscriptions and is closed by Close.
func (s *QuoteStream) Subscribe(instruments ...string) (<-chan Quote, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("stream closed")
	}

	if err := s.writeSubscribe(instruments); err != nil {
		return nil, err
	}

	s.instrumentsMu.Lock()
	s.instruments = append(s.instruments, instruments...)
	s.instrumentsMu.Unlock()

	return s.quotes, nil
}

func (s *QuoteStream) writeSubscribe(instruments []string) error {
	req := streamRequest{
		Action:      "subscribe",
		Instruments: instruments,
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and the quote channel.
func (s *QuoteStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.quotes)
	return nil
}

// readLoop reads messages and forwards price ticks to the quote
// channel.
func (s *QuoteStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect redials and resubscribes the active instrument set.
func (s *QuoteStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Redial failed, next read error retries with a longer delay.
		return
	}
	if s.config.OnReconnect != nil {
		s.config.OnReconnect()
	}

	s.instrumentsMu.RLock()
	instruments := make([]string, len(s.instruments))
	copy(instruments, s.instruments)
	s.instrumentsMu.RUnlock()

	if len(instruments) > 0 {
		s.writeSubscribe(instruments)
	}
}

func (s *QuoteStream) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "PRICE" {
		// Heartbeats and subscription acks are ignored.
		return
	}

	bid, err1 := strconv.ParseFloat(msg.Bid, 64)
	ask, err2 := strconv.ParseFloat(msg.Ask, 64)
	ts, err3 := time.Parse(time.RFC3339Nano, msg.Time)
	if err1 != nil || err2 != nil || err3 != nil {
		return
	}

	q := Quote{
		Instrument: strings.ReplaceAll(msg.Instrument, "_", "/"),
		Bid:        bid,
		Ask:        ask,
		Time:       ts.UTC(),
	}

	// Block until delivered so ticks are not dropped under burst.
	select {
	case s.quotes <- q:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *QuoteStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader handles reconnect.
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Streaming message types.

type streamRequest struct {
	Action      string   `json:"action"`
	Instruments []string `json:"instruments"`
}

type streamMessage struct {
	Type       string `json:"type"`
	Instrument string `json:"instrument"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	Time       string `json:"time"`
}
