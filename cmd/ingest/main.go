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

	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/feed"
	"github.com/beatitudeps-blip/fx-alert/internal/observability"
	chstore "github.com/beatitudeps-blip/fx-alert/internal/storage/clickhouse"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/migrations"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "csv", "Ingestion mode: csv or backfill")
	instrument := flag.String("instrument", "", "Instrument symbol, e.g. USD/JPY (required)")
	timeframe := flag.String("timeframe", "4h", "Bar timeframe: 4h or 1day")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse bar cache DSN (required)")

	// CSV mode
	csvPath := flag.String("csv", "", "Broker CSV export to load (csv mode)")
	profilePath := flag.String("broker-profile", "", "Broker profile JSON for the export timezone (default: built-in)")

	// Backfill mode
	endpoint := flag.String("endpoint", "", "Candle REST endpoint (backfill mode)")
	apiKey := flag.String("api-key", "", "Candle endpoint bearer token")
	fromStr := flag.String("from", "", "Backfill range start (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Backfill range end (YYYY-MM-DD, default today)")

	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *instrument == "" {
		logger.Fatal("--instrument is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	tf := domain.Timeframe(*timeframe)
	if tf.Duration() == 0 {
		logger.Fatalf("Invalid timeframe: %s. Must be 4h or 1day", *timeframe)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
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

	// Migrations create the bars table on first run.
	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	store := chstore.NewBarStore(conn)

	var bars []domain.Bar
	switch *mode {
	case "csv":
		if *csvPath == "" {
			logger.Fatal("--csv is required in csv mode")
		}
		profile := config.DefaultBrokerProfile()
		if *profilePath != "" {
			if profile, err = config.LoadBrokerProfile(*profilePath); err != nil {
				logger.Fatalf("load broker profile: %v", err)
			}
		}
		bars, err = feed.ImportCSVFile(*csvPath, profile.Location())
		if err != nil {
			logger.Fatalf("import csv: %v", err)
		}

	case "backfill":
		if *endpoint == "" {
			logger.Fatal("--endpoint is required in backfill mode")
		}
		if *fromStr == "" {
			logger.Fatal("--from is required in backfill mode")
		}
		from, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			logger.Fatalf("parse --from: %v", err)
		}
		to := time.Now().UTC()
		if *toStr != "" {
			if to, err = time.Parse("2006-01-02", *toStr); err != nil {
				logger.Fatalf("parse --to: %v", err)
			}
		}

		client := feed.NewHTTPClient(*endpoint, feed.WithAPIKey(*apiKey))
		bars, err = client.CandlesRange(ctx, *instrument, tf, from, to)
		if err != nil {
			logger.Fatalf("fetch candles: %v", err)
		}
		observability.RecordBarsFetched(len(bars))

	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	if len(bars) == 0 {
		logger.Fatal("no bars to ingest")
	}

	if err := store.InsertBulk(ctx, *instrument, tf, bars); err != nil {
		logger.Fatalf("insert bars: %v", err)
	}
	observability.RecordBarsCached(len(bars))

	logger.Printf("Ingested %d %s bars for %s (%s through %s)",
		len(bars), tf, *instrument,
		bars[0].Start.Format(time.RFC3339),
		bars[len(bars)-1].Start.Format(time.RFC3339))
}
