package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/advisory"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/feed"
	"github.com/beatitudeps-blip/fx-alert/internal/notify"
	"github.com/beatitudeps-blip/fx-alert/internal/observability"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/memory"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/migrations"
	pgstore "github.com/beatitudeps-blip/fx-alert/internal/storage/postgres"
)

// Bar window sizes fetched per cycle. The daily window must cover the
// ADX warmup; the H4 window the signal gate's lookback.
const (
	h4FetchCount    = 200
	dailyFetchCount = 120
)

func main() {
	// Parse flags
	instrument := flag.String("instrument", "", "Instrument symbol, e.g. USD/JPY (required)")
	endpoint := flag.String("endpoint", "", "Candle REST endpoint (required)")
	apiKey := flag.String("api-key", "", "Candle endpoint bearer token")
	webhookURL := flag.String("webhook-url", "", "Advisory webhook URL (required)")
	interval := flag.Duration("interval", time.Minute, "Evaluation interval")
	equity := flag.Float64("equity", 500000, "Account equity for sizing, account currency")

	profilePath := flag.String("broker-profile", "", "Broker profile JSON (default: built-in profile)")
	paramsPath := flag.String("params", "", "Strategy params JSON (default: shipped params)")

	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for delivery state")
	useMemory := flag.Bool("use-memory", false, "Keep delivery state in memory (lost on restart)")

	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	streamEndpoint := flag.String("stream-endpoint", "", "Websocket quote stream URL (enables the live spread check)")

	flag.Parse()

	logger := log.New(os.Stderr, "[alert] ", log.LstdFlags)

	if *instrument == "" {
		logger.Fatal("--instrument is required")
	}
	if *endpoint == "" {
		logger.Fatal("--endpoint is required")
	}
	if *webhookURL == "" {
		logger.Fatal("--webhook-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required unless --use-memory is set")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	profile := config.DefaultBrokerProfile()
	if *profilePath != "" {
		p, err := config.LoadBrokerProfile(*profilePath)
		if err != nil {
			logger.Fatalf("load broker profile: %v", err)
		}
		profile = p
	}
	params := config.DefaultStrategyParams()
	if *paramsPath != "" {
		p, err := config.LoadStrategyParams(*paramsPath)
		if err != nil {
			logger.Fatalf("load strategy params: %v", err)
		}
		params = p
	}

	// Delivery state survives restarts when backed by PostgreSQL.
	var stateStore storage.NotifyStateStore = memory.NewNotifyStateStore()
	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
		stateStore = pgstore.NewNotifyStateStore(pool)
	}

	evaluator, err := advisory.NewEvaluator(*instrument, profile, params, nil)
	if err != nil {
		logger.Fatalf("build evaluator: %v", err)
	}

	// With a quote stream attached the evaluator vetoes entries on the
	// spread actually quoted right now, not just the table band.
	if *streamEndpoint != "" {
		streamCfg := feed.DefaultStreamConfig()
		streamCfg.OnReconnect = observability.RecordStreamReconnect
		stream, err := feed.NewQuoteStream(ctx, *streamEndpoint, &streamCfg)
		if err != nil {
			logger.Fatalf("connect quote stream: %v", err)
		}
		defer stream.Close()

		quotes, err := stream.Subscribe(*instrument)
		if err != nil {
			logger.Fatalf("subscribe to %s quotes: %v", *instrument, err)
		}

		monitor := feed.NewSpreadMonitor(0)
		go func() {
			for q := range quotes {
				observability.RecordQuoteTick()
				monitor.Observe(q)
			}
		}()
		evaluator = evaluator.WithQuotes(monitor)
		logger.Printf("Streaming %s quotes from %s", *instrument, *streamEndpoint)
	}

	client := feed.NewHTTPClient(*endpoint, feed.WithAPIKey(*apiKey))
	barStore := memory.NewBarStore()
	refresher := feed.NewRefresher(client, barStore, logger)

	dispatcher := notify.NewDispatcher(notify.NewWebhookSender(*webhookURL), stateStore, logger)

	logger.Printf("Watching %s every %v", *instrument, *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		runCycle(ctx, logger, *instrument, *equity, refresher, barStore, evaluator, dispatcher)

		select {
		case <-ctx.Done():
			logger.Println("Shutdown complete")
			return
		case <-ticker.C:
		}
	}
}

// runCycle refreshes the bar cache, evaluates the gate once and hands
// any fresh advisory to the dispatcher. Failures are logged and
// retried on the next tick; the loop never dies.
func runCycle(
	ctx context.Context,
	logger *log.Logger,
	instrument string,
	equity float64,
	refresher *feed.Refresher,
	barStore storage.BarStore,
	evaluator *advisory.Evaluator,
	dispatcher *notify.Dispatcher,
) {
	if _, err := refresher.Refresh(ctx, instrument, domain.TimeframeH4, h4FetchCount); err != nil {
		logger.Printf("refresh H4 bars: %v", err)
		observability.RecordFeedError("candles")
		return
	}
	if _, err := refresher.Refresh(ctx, instrument, domain.TimeframeD1, dailyFetchCount); err != nil {
		logger.Printf("refresh daily bars: %v", err)
		observability.RecordFeedError("candles")
		return
	}

	h4, err := barStore.GetLatest(ctx, instrument, domain.TimeframeH4, h4FetchCount)
	if err != nil {
		logger.Printf("read H4 cache: %v", err)
		return
	}
	daily, err := barStore.GetLatest(ctx, instrument, domain.TimeframeD1, dailyFetchCount)
	if err != nil {
		logger.Printf("read daily cache: %v", err)
		return
	}

	order, err := evaluator.Evaluate(h4, daily, equity, time.Now().UTC())
	if err != nil {
		logger.Printf("evaluate: %v", err)
		return
	}
	observability.DefaultMetrics.LastAdvisoryCycle.Set(float64(time.Now().Unix()))

	if order == nil {
		return
	}

	if order.SkipReason != "" {
		observability.RecordSignalSkipped(string(order.SkipReason))
	} else {
		observability.RecordSignalEmitted(order.Pattern)
	}

	// Skip advisories are delivered too: a signal that fired but could
	// not be traded is still worth knowing about.
	start := time.Now()
	sent, err := dispatcher.Dispatch(ctx, order)
	if err != nil {
		logger.Printf("dispatch: %v", err)
		observability.RecordNotifyError()
		return
	}
	if sent {
		observability.RecordAdvisoryDelivered(time.Since(start).Seconds())
	} else {
		observability.RecordAdvisoryDeduped()
	}
}
