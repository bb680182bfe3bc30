package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/backtest"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/feed"
	"github.com/beatitudeps-blip/fx-alert/internal/idhash"
	"github.com/beatitudeps-blip/fx-alert/internal/metrics"
	chstore "github.com/beatitudeps-blip/fx-alert/internal/storage/clickhouse"
	"github.com/beatitudeps-blip/fx-alert/internal/storage/migrations"
	pgstore "github.com/beatitudeps-blip/fx-alert/internal/storage/postgres"
)

func main() {
	// Parse flags
	instrument := flag.String("instrument", "", "Instrument symbol, e.g. USD/JPY (required)")

	// Bar sources
	h4CSV := flag.String("h4-csv", "", "H4 bars CSV export (broker timezone)")
	dailyCSV := flag.String("daily-csv", "", "Daily bars CSV export (broker timezone)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse bar cache DSN (alternative to CSV)")
	fromStr := flag.String("from", "", "Range start (YYYY-MM-DD), cache source only")
	toStr := flag.String("to", "", "Range end (YYYY-MM-DD), cache source only")

	// Configuration
	profilePath := flag.String("broker-profile", "", "Broker profile JSON (default: built-in profile)")
	paramsPath := flag.String("params", "", "Strategy params JSON (default: shipped params)")
	entryMode := flag.String("entry-mode", "", "Override entry mode: DEFERRED_MARKET, OFFSET_LIMIT")
	exitMode := flag.String("exit-mode", "", "Override exit mode: FIXED_R, STRUCTURE, TREND_EXHAUSTION")
	initialEquity := flag.Float64("initial-equity", 500000, "Starting equity in account currency")
	walkForward := flag.Int("walk-forward", 0, "Split the series into N walk-forward segments")

	// Persistence
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	persist := flag.Bool("persist", false, "Persist trades, fills, equity and skips to storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output summary as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *instrument == "" {
		logger.Fatal("--instrument is required")
	}
	if *clickhouseDSN == "" && (*h4CSV == "" || *dailyCSV == "") {
		logger.Fatal("--h4-csv and --daily-csv are required unless --clickhouse-dsn is set")
	}
	if *persist && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required with --persist")
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

	profile, params := loadConfig(logger, *profilePath, *paramsPath, *entryMode, *exitMode)

	h4, daily := loadBars(ctx, logger, *instrument, *h4CSV, *dailyCSV, *clickhouseDSN, *fromStr, *toStr, profile)
	if len(h4) == 0 {
		logger.Fatal("no fast-timeframe bars in range")
	}

	from := h4[0].Start
	to := h4[len(h4)-1].End(domain.TimeframeH4)
	runID := idhash.ComputeRunID(*instrument, params.EntryMode, params.ExitMode, from.Unix(), to.Unix())

	cfg := backtest.Config{
		Instrument:    *instrument,
		RunID:         runID,
		InitialEquity: *initialEquity,
		Profile:       profile,
		Params:        params,
		Logger:        logger,
	}

	logger.Printf("Running backtest: instrument=%s bars=%d run=%.8s", *instrument, len(h4), runID)

	var results []*backtest.Result
	if *walkForward > 0 {
		segments, err := backtest.WalkForward(cfg, h4, daily, *walkForward)
		if err != nil {
			logger.Fatalf("walk-forward failed: %v", err)
		}
		for _, seg := range segments {
			results = append(results, seg.Result)
		}
	} else {
		driver, err := backtest.NewDriver(cfg)
		if err != nil {
			logger.Fatalf("build driver: %v", err)
		}
		res, err := driver.Run(h4, daily)
		if err != nil {
			logger.Fatalf("backtest failed: %v", err)
		}
		results = append(results, res)
	}

	if *persist {
		persistResults(ctx, logger, *postgresDSN, results)
	}

	for _, res := range results {
		summary := metrics.Compute(res.Trades, equityPoints(res))
		summary.RunID = res.RunID
		summary.Instrument = res.Instrument

		if *outputJSON {
			output, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(output))
		} else {
			printSummary(res, summary)
		}
	}
}

// loadConfig loads the broker profile and strategy params, applying
// mode overrides before validation.
func loadConfig(logger *log.Logger, profilePath, paramsPath, entryMode, exitMode string) (*config.BrokerProfile, config.StrategyParams) {
	profile := config.DefaultBrokerProfile()
	if profilePath != "" {
		p, err := config.LoadBrokerProfile(profilePath)
		if err != nil {
			logger.Fatalf("load broker profile: %v", err)
		}
		profile = p
	}

	params := config.DefaultStrategyParams()
	if paramsPath != "" {
		p, err := config.LoadStrategyParams(paramsPath)
		if err != nil {
			logger.Fatalf("load strategy params: %v", err)
		}
		params = p
	}
	if entryMode != "" {
		params.EntryMode = entryMode
	}
	if exitMode != "" {
		params.ExitMode = exitMode
	}
	if err := params.Validate(); err != nil {
		logger.Fatalf("invalid strategy params: %v", err)
	}

	return profile, params
}

// loadBars reads both series from CSV exports or the ClickHouse cache.
func loadBars(ctx context.Context, logger *log.Logger, instrument, h4CSV, dailyCSV, dsn, fromStr, toStr string, profile *config.BrokerProfile) (h4, daily []domain.Bar) {
	if dsn == "" {
		var err error
		h4, err = feed.ImportCSVFile(h4CSV, profile.Location())
		if err != nil {
			logger.Fatalf("load H4 bars: %v", err)
		}
		daily, err = feed.ImportCSVFile(dailyCSV, profile.Location())
		if err != nil {
			logger.Fatalf("load daily bars: %v", err)
		}
		return h4, daily
	}

	from := time.Time{}
	to := time.Now().UTC()
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			logger.Fatalf("parse --from: %v", err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			logger.Fatalf("parse --to: %v", err)
		}
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	store := chstore.NewBarStore(conn)
	if h4, err = store.GetByTimeRange(ctx, instrument, domain.TimeframeH4, from, to); err != nil {
		logger.Fatalf("load H4 bars: %v", err)
	}
	if daily, err = store.GetByTimeRange(ctx, instrument, domain.TimeframeD1, from, to); err != nil {
		logger.Fatalf("load daily bars: %v", err)
	}
	return h4, daily
}

// persistResults writes every run's trades, fills, equity curve and
// skip records to PostgreSQL.
func persistResults(ctx context.Context, logger *log.Logger, dsn string, results []*backtest.Result) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	tradeStore := pgstore.NewTradeStore(pool)
	fillStore := pgstore.NewFillStore(pool)
	equityStore := pgstore.NewEquityStore(pool)
	skipStore := pgstore.NewSkipStore(pool)

	for _, res := range results {
		trades := res.Trades
		if res.OpenTrade != nil {
			trades = append(trades[:len(trades):len(trades)], res.OpenTrade)
		}

		var fills []*domain.Fill
		for _, t := range trades {
			for i := range t.Fills {
				fills = append(fills, &t.Fills[i])
			}
		}

		skips := make([]*domain.SkippedSignal, len(res.Skips))
		for i := range res.Skips {
			skips[i] = &res.Skips[i]
		}

		if err := tradeStore.InsertBulk(ctx, trades); err != nil {
			logger.Fatalf("persist trades: %v", err)
		}
		if len(fills) > 0 {
			if err := fillStore.InsertBulk(ctx, fills); err != nil {
				logger.Fatalf("persist fills: %v", err)
			}
		}
		if err := equityStore.InsertBulk(ctx, equityPoints(res)); err != nil {
			logger.Fatalf("persist equity curve: %v", err)
		}
		if len(skips) > 0 {
			if err := skipStore.InsertBulk(ctx, skips); err != nil {
				logger.Fatalf("persist skips: %v", err)
			}
		}

		logger.Printf("Persisted run %.8s: %d trades, %d fills, %d equity points, %d skips",
			res.RunID, len(trades), len(fills), len(res.EquityCurve), len(res.Skips))
	}
}

// equityPoints adapts a run's equity curve to the pointer slices the
// stores and the metrics package take.
func equityPoints(res *backtest.Result) []*domain.EquityPoint {
	points := make([]*domain.EquityPoint, len(res.EquityCurve))
	for i := range res.EquityCurve {
		points[i] = &res.EquityCurve[i]
	}
	return points
}

// printSummary outputs a human-readable run summary.
func printSummary(res *backtest.Result, s *metrics.Summary) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", s.RunID)
	fmt.Printf("Instrument:         %s\n", s.Instrument)
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Closed:           %d\n", s.TotalTrades)
	fmt.Printf("  Wins / Losses:    %d / %d\n", s.Wins, s.Losses)
	fmt.Printf("  Win Rate:         %.1f%%\n", s.WinRate*100)
	if res.OpenTrade != nil {
		fmt.Printf("  Still Open:       %s %s since %s\n",
			res.OpenTrade.Direction, res.OpenTrade.Instrument,
			res.OpenTrade.EntryTime.Format(time.RFC3339))
	}
	fmt.Println()

	fmt.Println("Performance:")
	fmt.Printf("  Net PnL:          %.2f\n", s.NetPnL)
	fmt.Printf("  Profit Factor:    %.2f\n", s.ProfitFactor)
	fmt.Printf("  Expectancy:       %.2f\n", s.Expectancy)
	fmt.Printf("  Total Costs:      %.2f\n", s.TotalCosts)
	fmt.Printf("  Max Drawdown:     %.2f (%.1f%%)\n", s.MaxDrawdown, s.MaxDrawdownPct*100)
	fmt.Printf("  Max Loss Streak:  %d\n", s.MaxConsecutiveLosses)
	fmt.Printf("  Avg Hold (hours): %.1f\n", s.AvgHoldingHours)
	fmt.Printf("  Final Equity:     %.2f\n", res.FinalEquity)
	fmt.Println()

	if len(res.Skips) > 0 {
		fmt.Println("Skipped Signals:")
		for _, reason := range []domain.SkipReason{
			domain.SkipMaintenance, domain.SkipSpreadFilter, domain.SkipSizing,
			domain.SkipExpired, domain.SkipIntrabarConflict, domain.SkipStreakGuard,
			domain.SkipPortfolioRisk,
		} {
			if n := res.SkipCount(reason); n > 0 {
				fmt.Printf("  %-18s %d\n", reason, n)
			}
		}
		fmt.Println()
	}
}
