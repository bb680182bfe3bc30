// Package feed acquires OHLC bars and live quotes: a REST candle
// client, a streaming quote client, a broker CSV importer, and a
// refresher that tops up the bar cache with newly confirmed bars.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// HTTPClient fetches candles from a REST candle endpoint. The endpoint
// serves GET {base}/instruments/{instrument}/candles and returns mid
// OHLC strings with a completeness flag; incomplete candles are
// dropped so callers only ever see confirmed bars.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// NewHTTPClient creates a new candle REST client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// granularity maps a timeframe to the provider's granularity code.
func granularity(tf domain.Timeframe) (string, error) {
	switch tf {
	case domain.TimeframeH4:
		return "H4", nil
	case domain.TimeframeD1:
		return "D", nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", tf)
	}
}

// providerInstrument converts "USD/JPY" to the provider's "USD_JPY".
func providerInstrument(instrument string) string {
	return strings.ReplaceAll(instrument, "/", "_")
}

// Candles fetches the latest count candles for the instrument and
// timeframe. Only complete candles are returned, oldest first.
func (c *HTTPClient) Candles(ctx context.Context, instrument string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	gran, err := granularity(tf)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("granularity", gran)
	q.Set("count", strconv.Itoa(count))
	q.Set("price", "M")

	return c.fetchCandles(ctx, instrument, q)
}

// CandlesRange fetches complete candles with start times in [from, to).
func (c *HTTPClient) CandlesRange(ctx context.Context, instrument string, tf domain.Timeframe, from, to time.Time) ([]domain.Bar, error) {
	gran, err := granularity(tf)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("granularity", gran)
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	q.Set("price", "M")

	return c.fetchCandles(ctx, instrument, q)
}

func (c *HTTPClient) fetchCandles(ctx context.Context, instrument string, q url.Values) ([]domain.Bar, error) {
	u := fmt.Sprintf("%s/instruments/%s/candles?%s", c.endpoint, providerInstrument(instrument), q.Encode())

	var resp candlesResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(resp.Candles))
	for _, cd := range resp.Candles {
		if !cd.Complete || cd.Mid == nil {
			continue
		}
		b, err := cd.toBar()
		if err != nil {
			return nil, fmt.Errorf("candle %s: %w", cd.Time, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// get performs a GET with retries and exponential backoff. Rate limits
// and 5xx responses are retried; other non-200 responses are not.
func (c *HTTPClient) get(ctx context.Context, url string, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// candlesResponse is the raw REST response for a candles request.
type candlesResponse struct {
	Instrument  string   `json:"instrument"`
	Granularity string   `json:"granularity"`
	Candles     []candle `json:"candles"`
}

type candle struct {
	Time     string      `json:"time"` // RFC3339, bar open time
	Complete bool        `json:"complete"`
	Mid      *candleOHLC `json:"mid"`
}

// candleOHLC carries prices as decimal strings, as the provider sends
// them.
type candleOHLC struct {
	Open  string `json:"o"`
	High  string `json:"h"`
	Low   string `json:"l"`
	Close string `json:"c"`
}

func (cd candle) toBar() (domain.Bar, error) {
	start, err := time.Parse(time.RFC3339, cd.Time)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parse time: %w", err)
	}

	parse := func(field, s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
		}
		return v, nil
	}

	var b domain.Bar
	b.Start = start.UTC()
	if b.Open, err = parse("open", cd.Mid.Open); err != nil {
		return domain.Bar{}, err
	}
	if b.High, err = parse("high", cd.Mid.High); err != nil {
		return domain.Bar{}, err
	}
	if b.Low, err = parse("low", cd.Mid.Low); err != nil {
		return domain.Bar{}, err
	}
	if b.Close, err = parse("close", cd.Mid.Close); err != nil {
		return domain.Bar{}, err
	}
	return b, nil
}
