package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/beatitudeps-blip/fx-alert/internal/reporting"
	pgstore "github.com/beatitudeps-blip/fx-alert/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Run identifier to report on (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv, or both")
	outputDir := flag.String("output-dir", "reports", "Directory for generated files")
	stdout := flag.Bool("stdout", false, "Print the markdown report to stdout instead of a file")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *runID == "" {
		logger.Fatal("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	wantMarkdown := *format == "markdown" || *format == "both"
	wantCSV := *format == "csv" || *format == "both"
	if !wantMarkdown && !wantCSV {
		logger.Fatalf("unknown format %q (want markdown, csv, or both)", *format)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	tradeStore := pgstore.NewTradeStore(pool)
	equityStore := pgstore.NewEquityStore(pool)
	skipStore := pgstore.NewSkipStore(pool)

	gen := reporting.NewGenerator(tradeStore, equityStore, skipStore)
	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	if *stdout && wantMarkdown {
		fmt.Print(reporting.RenderMarkdown(report))
		if !wantCSV {
			return
		}
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	short := shortRunID(*runID)
	var written []string

	if wantMarkdown && !*stdout {
		path := filepath.Join(*outputDir, fmt.Sprintf("report_%s.md", short))
		if err := os.WriteFile(path, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
			logger.Fatalf("write markdown report: %v", err)
		}
		written = append(written, path)
	}

	if wantCSV {
		path := filepath.Join(*outputDir, fmt.Sprintf("trades_%s.csv", short))
		if err := os.WriteFile(path, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
			logger.Fatalf("write trades csv: %v", err)
		}
		written = append(written, path)

		equity, err := equityStore.GetByRunID(ctx, *runID)
		if err != nil {
			logger.Fatalf("load equity curve: %v", err)
		}
		path = filepath.Join(*outputDir, fmt.Sprintf("equity_%s.csv", short))
		if err := os.WriteFile(path, []byte(reporting.RenderEquityCSV(equity)), 0o644); err != nil {
			logger.Fatalf("write equity csv: %v", err)
		}
		written = append(written, path)
	}

	if len(written) > 0 {
		fmt.Println("Report generated:")
		for _, p := range written {
			fmt.Printf("  - %s\n", p)
		}
	}
}

// shortRunID keeps filenames readable; run IDs are sha256 hex.
func shortRunID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
