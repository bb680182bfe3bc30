package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/backtest"
	"github.com/beatitudeps-blip/fx-alert/internal/config"
	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/idhash"
	"github.com/beatitudeps-blip/fx-alert/internal/metrics"
	chstore "github.com/beatitudeps-blip/fx-alert/internal/storage/clickhouse"
)

// barSeries holds one instrument's loaded bar history.
type barSeries struct {
	h4    []domain.Bar
	daily []domain.Bar
}

// job is one (instrument, entry mode, exit mode) run in the unguarded
// sweep. Guarded runs go through runPortfolio instead.
type job struct {
	instrument string
	params     config.StrategyParams
}

// outcome pairs a finished run with its performance summary.
type outcome struct {
	instrument string
	entryMode  string
	exitMode   string
	result     *backtest.Result
	summary    *metrics.Summary
	err        error
}

func main() {
	instrumentsFlag := flag.String("instruments", "", "Comma-separated instruments, e.g. USD/JPY,EUR/USD (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse bar cache DSN (required)")
	fromStr := flag.String("from", "", "Range start (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Range end (YYYY-MM-DD)")

	profilePath := flag.String("broker-profile", "", "Broker profile JSON (default: built-in profile)")
	paramsPath := flag.String("params", "", "Strategy params JSON (default: shipped params)")
	entryModesFlag := flag.String("entry-modes", "", "Comma-separated entry modes to sweep (default: params value)")
	exitModesFlag := flag.String("exit-modes", "", "Comma-separated exit modes to sweep (default: params value)")
	initialEquity := flag.Float64("initial-equity", 500000, "Starting equity per instrument")
	riskCeiling := flag.Float64("risk-ceiling", 0, "Portfolio open-risk ceiling shared across instruments (0 = unlimited)")
	workers := flag.Int("workers", runtime.NumCPU(), "Concurrent runs (unguarded sweep only)")

	outputJSON := flag.Bool("json", false, "Output summaries as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[batch] ", log.LstdFlags)

	instruments := splitList(*instrumentsFlag)
	if len(instruments) == 0 {
		logger.Fatal("--instruments is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}
	if *workers < 1 {
		*workers = 1
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

	baseParams := config.DefaultStrategyParams()
	if *paramsPath != "" {
		p, err := config.LoadStrategyParams(*paramsPath)
		if err != nil {
			logger.Fatalf("load strategy params: %v", err)
		}
		baseParams = p
	}

	entryModes := splitList(*entryModesFlag)
	if len(entryModes) == 0 {
		entryModes = []string{baseParams.EntryMode}
	}
	exitModes := splitList(*exitModesFlag)
	if len(exitModes) == 0 {
		exitModes = []string{baseParams.ExitMode}
	}

	series := loadAllBars(ctx, logger, *clickhouseDSN, instruments, *fromStr, *toStr)

	var variants []config.StrategyParams
	for _, em := range entryModes {
		for _, xm := range exitModes {
			params := baseParams
			params.EntryMode = em
			params.ExitMode = xm
			if err := params.Validate(); err != nil {
				logger.Fatalf("invalid params for entry=%s exit=%s: %v", em, xm, err)
			}
			variants = append(variants, params)
		}
	}

	var outcomes []outcome
	if *riskCeiling > 0 {
		// Ceiling mode merges a variant's instruments into one
		// time-ordered scan, so the shared guard sees reservations in
		// simulated order and the batch is reproducible. Variants run
		// one after another; they share nothing.
		logger.Printf("Running %d portfolio scans over %d instruments (ceiling %.2f)",
			len(variants), len(instruments), *riskCeiling)
		for _, params := range variants {
			outcomes = append(outcomes, runPortfolio(logger, params, instruments, series, profile, *initialEquity, *riskCeiling)...)
		}
	} else {
		var jobs []job
		for _, params := range variants {
			for _, inst := range instruments {
				jobs = append(jobs, job{instrument: inst, params: params})
			}
		}
		logger.Printf("Running %d backtests across %d instruments with %d workers",
			len(jobs), len(instruments), *workers)
		outcomes = runAll(logger, jobs, series, profile, *initialEquity, *workers)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].instrument != outcomes[j].instrument {
			return outcomes[i].instrument < outcomes[j].instrument
		}
		if outcomes[i].entryMode != outcomes[j].entryMode {
			return outcomes[i].entryMode < outcomes[j].entryMode
		}
		return outcomes[i].exitMode < outcomes[j].exitMode
	})

	failed := 0
	for _, out := range outcomes {
		if out.err != nil {
			logger.Printf("run failed: %s entry=%s exit=%s: %v",
				out.instrument, out.entryMode, out.exitMode, out.err)
			failed++
		}
	}

	if *outputJSON {
		printJSON(outcomes)
	} else {
		printTable(outcomes)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// loadAllBars reads both timeframes for every instrument from the
// ClickHouse cache up front, so workers never touch the connection.
func loadAllBars(ctx context.Context, logger *log.Logger, dsn string, instruments []string, fromStr, toStr string) map[string]barSeries {
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
	series := make(map[string]barSeries, len(instruments))
	for _, inst := range instruments {
		h4, err := store.GetByTimeRange(ctx, inst, domain.TimeframeH4, from, to)
		if err != nil {
			logger.Fatalf("load H4 bars for %s: %v", inst, err)
		}
		daily, err := store.GetByTimeRange(ctx, inst, domain.TimeframeD1, from, to)
		if err != nil {
			logger.Fatalf("load daily bars for %s: %v", inst, err)
		}
		if len(h4) == 0 {
			logger.Fatalf("no fast-timeframe bars for %s in range", inst)
		}
		series[inst] = barSeries{h4: h4, daily: daily}
	}
	return series
}

// runAll fans the jobs out over a fixed worker pool and collects
// every outcome. Runs are independent; a failure does not stop the
// rest of the batch.
func runAll(logger *log.Logger, jobs []job, series map[string]barSeries, profile *config.BrokerProfile, initialEquity float64, workers int) []outcome {
	jobCh := make(chan job)
	outCh := make(chan outcome, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				outCh <- runOne(logger, j, series[j.instrument], profile, initialEquity)
			}
		}()
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()
	close(outCh)

	outcomes := make([]outcome, 0, len(jobs))
	for out := range outCh {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func runOne(logger *log.Logger, j job, bars barSeries, profile *config.BrokerProfile, initialEquity float64) outcome {
	out := outcome{
		instrument: j.instrument,
		entryMode:  j.params.EntryMode,
		exitMode:   j.params.ExitMode,
	}

	driver, err := backtest.NewDriver(runConfig(logger, j.instrument, j.params, bars, profile, initialEquity, nil))
	if err != nil {
		out.err = err
		return out
	}

	res, err := driver.Run(bars.h4, bars.daily)
	if err != nil {
		out.err = err
		return out
	}

	out.result = res
	out.summary = summarize(res)
	return out
}

// runPortfolio executes one parameter variant as a single interleaved
// scan over all instruments sharing one ceiling guard. A failure in the
// shared scan fails every instrument of the variant.
func runPortfolio(logger *log.Logger, params config.StrategyParams, instruments []string, series map[string]barSeries, profile *config.BrokerProfile, initialEquity, ceiling float64) []outcome {
	guard := backtest.NewCeilingGuard(ceiling)

	runs := make([]backtest.PortfolioRun, 0, len(instruments))
	for _, inst := range instruments {
		bars := series[inst]
		runs = append(runs, backtest.PortfolioRun{
			Config: runConfig(logger, inst, params, bars, profile, initialEquity, guard),
			H4:     bars.h4,
			Daily:  bars.daily,
		})
	}

	results, err := backtest.RunPortfolio(runs)
	if err != nil {
		outcomes := make([]outcome, 0, len(instruments))
		for _, inst := range instruments {
			outcomes = append(outcomes, outcome{
				instrument: inst,
				entryMode:  params.EntryMode,
				exitMode:   params.ExitMode,
				err:        err,
			})
		}
		return outcomes
	}

	outcomes := make([]outcome, 0, len(results))
	for _, res := range results {
		outcomes = append(outcomes, outcome{
			instrument: res.Instrument,
			entryMode:  params.EntryMode,
			exitMode:   params.ExitMode,
			result:     res,
			summary:    summarize(res),
		})
	}
	return outcomes
}

func runConfig(logger *log.Logger, instrument string, params config.StrategyParams, bars barSeries, profile *config.BrokerProfile, initialEquity float64, guard backtest.RiskGuard) backtest.Config {
	from := bars.h4[0].Start
	to := bars.h4[len(bars.h4)-1].End(domain.TimeframeH4)
	return backtest.Config{
		Instrument:    instrument,
		RunID:         idhash.ComputeRunID(instrument, params.EntryMode, params.ExitMode, from.Unix(), to.Unix()),
		InitialEquity: initialEquity,
		Profile:       profile,
		Params:        params,
		Guard:         guard,
		Logger:        logger,
	}
}

func summarize(res *backtest.Result) *metrics.Summary {
	points := make([]*domain.EquityPoint, len(res.EquityCurve))
	for i := range res.EquityCurve {
		points[i] = &res.EquityCurve[i]
	}
	summary := metrics.Compute(res.Trades, points)
	summary.RunID = res.RunID
	summary.Instrument = res.Instrument
	return summary
}

func printJSON(outcomes []outcome) {
	summaries := make([]*metrics.Summary, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err == nil {
			summaries = append(summaries, out.summary)
		}
	}
	output, _ := json.MarshalIndent(summaries, "", "  ")
	fmt.Println(string(output))
}

func printTable(outcomes []outcome) {
	fmt.Println()
	fmt.Printf("%-10s %-16s %-17s %7s %8s %12s %8s %12s %14s\n",
		"INSTR", "ENTRY", "EXIT", "TRADES", "WINRATE", "NET PNL", "PF", "MAX DD", "FINAL EQUITY")
	for _, out := range outcomes {
		if out.err != nil {
			fmt.Printf("%-10s %-16s %-17s %s\n", out.instrument, out.entryMode, out.exitMode, "FAILED")
			continue
		}
		s := out.summary
		fmt.Printf("%-10s %-16s %-17s %7d %7.1f%% %12.2f %8.2f %12.2f %14.2f\n",
			out.instrument, out.entryMode, out.exitMode,
			s.TotalTrades, s.WinRate*100, s.NetPnL, s.ProfitFactor,
			s.MaxDrawdown, out.result.FinalEquity)
	}
}

func splitList(s string) []string {
	var items []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}
