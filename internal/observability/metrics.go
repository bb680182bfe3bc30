// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	BarsFetched        prometheus.Counter
	BarsCached         prometheus.Counter
	QuoteTicksReceived prometheus.Counter
	StreamReconnects   prometheus.Counter
	FeedErrors         *prometheus.CounterVec

	// Engine metrics
	BarsScanned    prometheus.Counter
	SignalsEmitted *prometheus.CounterVec
	SignalsSkipped *prometheus.CounterVec
	TradesOpened   prometheus.Counter
	TradesClosed   *prometheus.CounterVec
	AccountEquity  prometheus.Gauge

	// Latency metrics
	CandleFetchLatency prometheus.Histogram
	RunDuration        *prometheus.HistogramVec

	// Notify metrics
	AdvisoriesDelivered prometheus.Counter
	AdvisoriesDeduped   prometheus.Counter
	WebhookLatency      prometheus.Histogram
	NotifyErrors        prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRefresh prometheus.Gauge
	LastAdvisoryCycle     prometheus.Gauge
	UptimeSeconds         prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fx_alert"
	}

	return &Metrics{
		// Feed metrics
		BarsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_fetched_total",
			Help:      "Total number of confirmed bars fetched from the candle endpoint",
		}),
		BarsCached: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "bars_cached_total",
			Help:      "Total number of new bars written to the bar cache",
		}),
		QuoteTicksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "quote_ticks_received_total",
			Help:      "Total number of bid/ask ticks received on the quote stream",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_reconnects_total",
			Help:      "Total number of quote stream reconnect attempts",
		}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed errors by source",
		}, []string{"source"}),

		// Engine metrics
		BarsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "bars_scanned_total",
			Help:      "Total number of bars processed by the backtest scan",
		}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals emitted by pattern",
		}, []string{"pattern"}),
		SignalsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "signals_skipped_total",
			Help:      "Total number of signals skipped by reason",
		}, []string{"reason"}),
		TradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_opened_total",
			Help:      "Total number of trades opened",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_closed_total",
			Help:      "Total number of trades closed by reason",
		}, []string{"reason"}),
		AccountEquity: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "account_equity",
			Help:      "Current account equity in account currency",
		}),

		// Latency metrics
		CandleFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "candle_fetch_latency_seconds",
			Help:      "Candle REST request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"mode"}),

		// Notify metrics
		AdvisoriesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "advisories_delivered_total",
			Help:      "Total number of advisory orders delivered to the webhook",
		}),
		AdvisoriesDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "advisories_deduped_total",
			Help:      "Total number of advisory orders suppressed by dedup state",
		}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "webhook_latency_seconds",
			Help:      "Webhook delivery latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		NotifyErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "errors_total",
			Help:      "Total number of failed advisory deliveries",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful bar cache refresh",
		}),
		LastAdvisoryCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_advisory_cycle_timestamp",
			Help:      "Unix timestamp of last completed advisory evaluation cycle",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarsFetched adds to the bars fetched counter.
func RecordBarsFetched(n int) {
	DefaultMetrics.BarsFetched.Add(float64(n))
}

// RecordBarsCached adds to the bars cached counter.
func RecordBarsCached(n int) {
	DefaultMetrics.BarsCached.Add(float64(n))
}

// RecordQuoteTick counts one streamed quote.
func RecordQuoteTick() {
	DefaultMetrics.QuoteTicksReceived.Inc()
}

// RecordStreamReconnect counts one successful stream redial.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordFeedError records a feed error by source.
func RecordFeedError(source string) {
	DefaultMetrics.FeedErrors.WithLabelValues(source).Inc()
}

// RecordSignalEmitted increments the signal counter for a pattern.
func RecordSignalEmitted(pattern string) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(pattern).Inc()
}

// RecordSignalSkipped increments the skip counter for a reason.
func RecordSignalSkipped(reason string) {
	DefaultMetrics.SignalsSkipped.WithLabelValues(reason).Inc()
}

// RecordTradeOpened increments the trades opened counter.
func RecordTradeOpened() {
	DefaultMetrics.TradesOpened.Inc()
}

// RecordTradeClosed increments the trades closed counter for a reason.
func RecordTradeClosed(reason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(reason).Inc()
}

// UpdateEquity updates the account equity gauge.
func UpdateEquity(equity float64) {
	DefaultMetrics.AccountEquity.Set(equity)
}

// RecordAdvisoryDelivered increments the delivered advisories counter.
func RecordAdvisoryDelivered(latencySeconds float64) {
	DefaultMetrics.AdvisoriesDelivered.Inc()
	DefaultMetrics.WebhookLatency.Observe(latencySeconds)
}

// RecordAdvisoryDeduped increments the deduped advisories counter.
func RecordAdvisoryDeduped() {
	DefaultMetrics.AdvisoriesDeduped.Inc()
}

// RecordNotifyError increments the failed delivery counter.
func RecordNotifyError() {
	DefaultMetrics.NotifyErrors.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRunDuration records a backtest run duration by mode.
func RecordRunDuration(mode string, seconds float64) {
	DefaultMetrics.RunDuration.WithLabelValues(mode).Observe(seconds)
}
