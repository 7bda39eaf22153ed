// Command import runs the report pipeline against a local file or an
// s3:// object from the terminal, without going through the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/rtbcat/catscan-sub001/internal/config"
	"github.com/rtbcat/catscan-sub001/internal/ingest"
	"github.com/rtbcat/catscan-sub001/internal/logging"
	"github.com/rtbcat/catscan-sub001/internal/source"
	"github.com/rtbcat/catscan-sub001/internal/store"
)

func main() {
	validateOnly := flag.Bool("validate", false, "check the header and exit without writing")
	showSummary := flag.Bool("summary", false, "print aggregate statistics of the data store and exit")
	sourceName := flag.String("source", "", "override the source name recorded in the ledger")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.csv | s3://bucket/key>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*showSummary && flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	location := flag.Arg(0)

	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *showSummary {
		printSummary(ctx, cfg)
		return
	}

	in, err := source.Open(ctx, location)
	if err != nil {
		slog.Error("failed to open input", "error", err)
		os.Exit(1)
	}
	defer in.Close()

	name := in.Name
	if *sourceName != "" {
		name = *sourceName
	}

	if *validateOnly {
		importer := ingest.New(nil, ingest.DefaultConfig(), slog.Default())
		report := importer.Validate(in)
		if report.IsValid {
			fmt.Printf("OK: %d of %d columns mapped\n", len(report.ColumnsMapped), len(report.ColumnsFound))
			return
		}
		fmt.Printf("REJECTED: %s\n\n%s\n", report.ErrorMessage, report.Remediation())
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	importer := ingest.New(st, cliImportConfig(cfg), slog.Default())

	result, err := importer.Import(ctx, in, name)
	if err != nil {
		var rejected *ingest.RejectedError
		if errors.As(err, &rejected) {
			fmt.Printf("REJECTED: %s\n\n%s\n", rejected.Report.ErrorMessage, rejected.Report.Remediation())
			os.Exit(1)
		}
		slog.Error("import failed", "error", err)
		if result != nil {
			printResult(result)
		}
		os.Exit(1)
	}

	printResult(result)
}

func cliImportConfig(cfg *config.Config) ingest.Config {
	c := ingest.DefaultConfig()
	c.BatchSize = cfg.Import.BatchSize
	c.ProgressInterval = cfg.Import.ProgressInterval
	c.MaxSkipExamples = cfg.Import.MaxSkipExamples
	c.Detector = ingest.DetectorConfig{
		CTRThreshold:   cfg.Import.CTRThreshold,
		MinImpressions: cfg.Import.MinImpressions,
	}
	return c
}

func printSummary(ctx context.Context, cfg *config.Config) {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sum, err := store.New(pool).Summary(ctx)
	if err != nil {
		slog.Error("failed to load summary", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Data store summary\n")
	fmt.Printf("  rows:        %d\n", sum.TotalRows)
	if sum.DateRangeStart != "" {
		fmt.Printf("  date range:  %s .. %s (%d days)\n", sum.DateRangeStart, sum.DateRangeEnd, sum.UniqueDates)
	}
	fmt.Printf("  creatives:   %d\n", sum.UniqueCreatives)
	fmt.Printf("  billing ids: %d\n", sum.UniqueBillingIDs)
	fmt.Printf("  sizes:       %d\n", sum.UniqueSizes)
	fmt.Printf("  countries:   %d\n", sum.UniqueCountries)
	fmt.Printf("  impressions: %d\n", sum.TotalImpressions)
	fmt.Printf("  clicks:      %d\n", sum.TotalClicks)
	fmt.Printf("  spend:       $%.2f\n", float64(sum.TotalSpendMicros)/1e6)
}

func printResult(res *ingest.ImportResult) {
	fmt.Printf("Import %s: %s\n", res.BatchID, res.Status)
	fmt.Printf("  source:      %s\n", res.SourceName)
	fmt.Printf("  rows read:   %d\n", res.RowsRead)
	fmt.Printf("  imported:    %d\n", res.RowsImported)
	fmt.Printf("  skipped:     %d\n", res.RowsSkipped)
	fmt.Printf("  duplicates:  %d\n", res.RowsDuplicate)
	if res.DateRangeStart != "" {
		fmt.Printf("  date range:  %s .. %s\n", res.DateRangeStart, res.DateRangeEnd)
	}
	fmt.Printf("  creatives:   %d\n", res.UniqueCreatives)
	fmt.Printf("  impressions: %d\n", res.TotalImpressions)
	fmt.Printf("  spend:       $%.2f\n", float64(res.TotalSpendMicros)/1e6)
	if res.AnomalyCount > 0 {
		fmt.Printf("  anomalies:   %d flagged for review\n", res.AnomalyCount)
	}
	if len(res.OptionalMissing) > 0 {
		fmt.Printf("  missing optional columns: %s\n", strings.Join(res.OptionalMissing, ", "))
	}
	if len(res.SkipExamples) > 0 {
		fmt.Printf("  skip examples (%d of %d):\n", len(res.SkipExamples), res.RowsSkipped)
		for _, ex := range res.SkipExamples {
			fmt.Printf("    - %s\n", ex)
		}
	}
	if res.ErrorMessage != "" {
		fmt.Printf("  error: %s\n", res.ErrorMessage)
	}
	fmt.Printf("  duration:    %s\n", res.Duration.Round(10*time.Millisecond))
}
