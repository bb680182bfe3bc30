package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// Sender delivers one advisory order to an external channel.
type Sender interface {
	Send(ctx context.Context, order *domain.AdvisoryOrder) error
}

// WebhookSender posts advisory orders as JSON to a webhook endpoint.
type WebhookSender struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// SenderOption configures WebhookSender.
type SenderOption func(*WebhookSender)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *WebhookSender) {
		s.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) SenderOption {
	return func(s *WebhookSender) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) SenderOption {
	return func(s *WebhookSender) {
		s.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *WebhookSender) {
		s.client = client
	}
}

// NewWebhookSender creates a new webhook sender.
func NewWebhookSender(endpoint string, opts ...SenderOption) *WebhookSender {
	s := &WebhookSender{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface check.
var _ Sender = (*WebhookSender)(nil)

// payload is the wire form of an advisory order.
type payload struct {
	Instrument string  `json:"instrument"`
	Direction  string  `json:"direction"`
	Pattern    string  `json:"pattern,omitempty"`
	SignalTime string  `json:"signal_time"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	EntryLimit float64 `json:"entry_limit,omitempty"`
	StopPrice  float64 `json:"stop_price,omitempty"`
	TP1Price   float64 `json:"tp1_price,omitempty"`
	TP2Price   float64 `json:"tp2_price,omitempty"`
	TP2Source  string  `json:"tp2_source,omitempty"`
	Units      float64 `json:"units,omitempty"`
	Lots       float64 `json:"lots,omitempty"`
	Risk       float64 `json:"risk,omitempty"`
	SkipReason string  `json:"skip_reason,omitempty"`
	SkipDetail string  `json:"skip_detail,omitempty"`
}

// Send posts the order with retries and exponential backoff. Non-2xx
// responses are retried; the last error is returned when all attempts
// fail.
func (s *WebhookSender) Send(ctx context.Context, order *domain.AdvisoryOrder) error {
	body, err := json.Marshal(payload{
		Instrument: order.Instrument,
		Direction:  string(order.Direction),
		Pattern:    order.Pattern,
		SignalTime: order.SignalTime.UTC().Format(time.RFC3339),
		EntryPrice: order.EntryPrice,
		EntryLimit: order.EntryLimit,
		StopPrice:  order.StopPrice,
		TP1Price:   order.TP1Price,
		TP2Price:   order.TP2Price,
		TP2Source:  order.TP2Source,
		Units:      order.Units,
		Lots:       order.Lots,
		Risk:       order.Risk,
		SkipReason: string(order.SkipReason),
		SkipDetail: order.SkipDetail,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
