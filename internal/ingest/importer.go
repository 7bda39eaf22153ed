package ingest

// importer.go is the single-pass streaming pipeline: read, parse, normalize,
// detect, batch-write. The file is gated once up front (strict); everything
// after that is row-level and lenient. Memory stays bounded by the batch
// buffer; the file is never held whole.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rtbcat/catscan-sub001/internal/schema"
)

// Config tunes the import loop.
type Config struct {
	// BatchSize is how many normalized rows accumulate before a flush.
	BatchSize int
	// ProgressInterval is the row interval for coarse progress logging.
	ProgressInterval int
	// MaxSkipExamples caps how many row-skip reasons are retained for display.
	MaxSkipExamples int

	Detector DetectorConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:        1000,
		ProgressInterval: 50000,
		MaxSkipExamples:  20,
		Detector:         DefaultDetectorConfig(),
	}
}

// Importer runs validated imports against a Store. Safe for concurrent use:
// each Import call carries its own state, and writes are idempotent by
// RowKey, so overlapping imports need no coordination beyond the store's
// per-row atomicity.
type Importer struct {
	store Store
	det   *Detector
	cfg   Config
	log   *slog.Logger
}

// New builds an Importer. A nil logger falls back to slog.Default.
func New(store Store, cfg Config, log *slog.Logger) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 50000
	}
	if cfg.MaxSkipExamples <= 0 {
		cfg.MaxSkipExamples = 20
	}
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		store: store,
		det:   NewDetector(cfg.Detector),
		cfg:   cfg,
		log:   log,
	}
}

// Detector exposes the anomaly registry so callers can add heuristics.
func (imp *Importer) Detector() *Detector {
	return imp.det
}

// Validate reads only the header and decides whether the file is importable.
// It writes nothing and is safe to call on a stream that will be re-opened
// for the real import.
func (imp *Importer) Validate(r io.Reader) *ValidationReport {
	in, _ := wrapInput(r)
	cr := newCSVReader(in)
	header, err := cr.Read()
	if err != nil {
		return &ValidationReport{
			ErrorMessage: fmt.Sprintf("unreadable header: %v", err),
		}
	}
	_, report := ResolveColumns(header)
	return report
}

// Import streams one report file into the store. A file that fails header
// validation returns *RejectedError with nothing written and no ledger entry.
// For every file past the gate exactly one ledger entry is recorded, whether
// the run completes or dies mid-file.
func (imp *Importer) Import(ctx context.Context, r io.Reader, sourceName string) (*ImportResult, error) {
	started := time.Now()

	in, counter := wrapInput(r)
	cr := newCSVReader(in)

	header, err := cr.Read()
	if err != nil {
		return nil, &RejectedError{Report: &ValidationReport{
			ErrorMessage: fmt.Sprintf("unreadable header: %v", err),
		}}
	}

	cols, report := ResolveColumns(header)
	if !report.IsValid {
		return nil, &RejectedError{Report: report}
	}

	result := &ImportResult{
		BatchID:         uuid.NewString()[:8],
		SourceName:      sourceName,
		Status:          StatusComplete,
		ColumnsImported: mappedInSchemaOrder(report.ColumnsMapped),
		OptionalMissing: report.OptionalMissing,
	}
	log := imp.log.With("batch_id", result.BatchID, "source", sourceName)
	log.Info("import started", "columns_mapped", len(report.ColumnsMapped))

	norm := NewNormalizer(cols)
	batch := make([]*CanonicalRow, 0, imp.cfg.BatchSize)
	var anomalies []Anomaly

	creatives := make(map[string]struct{})
	billingIDs := make(map[string]struct{})
	sizes := make(map[string]struct{})
	countries := make(map[string]struct{})

	skip := func(line int, reason string) {
		result.RowsSkipped++
		if len(result.SkipExamples) < imp.cfg.MaxSkipExamples {
			result.SkipExamples = append(result.SkipExamples, fmt.Sprintf("row %d: %s", line, reason))
		}
	}

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Cancellation is honored between flushes only; committed batches
		// stay applied.
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := imp.store.UpsertRows(ctx, batch)
		if err != nil {
			return err
		}
		result.RowsImported += outcome.Inserted
		result.RowsDuplicate += outcome.Updated
		for _, f := range outcome.Failed {
			// Row-level write failures are counted, never retried.
			result.RowsSkipped++
			if len(result.SkipExamples) < imp.cfg.MaxSkipExamples {
				result.SkipExamples = append(result.SkipExamples, fmt.Sprintf("write %s: %v", f.RowKey, f.Err))
			}
		}
		batch = batch[:0]
		return nil
	}

	line := 1 // header
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.RowsRead++
				skip(line, fmt.Sprintf("malformed record: %v", parseErr.Err))
				continue
			}
			return imp.abort(ctx, result, counter.bytes, started, fmt.Errorf("read input: %w", err))
		}
		if isBlank(record) {
			continue
		}
		result.RowsRead++

		row, reason := norm.Row(record)
		if reason != "" {
			skip(line, reason)
			continue
		}
		row.BatchID = result.BatchID

		// Stats cover accepted rows only; the ledger's date range must not
		// reflect rows that never made it past normalization.
		if result.DateRangeStart == "" || row.MetricDate < result.DateRangeStart {
			result.DateRangeStart = row.MetricDate
		}
		if result.DateRangeEnd == "" || row.MetricDate > result.DateRangeEnd {
			result.DateRangeEnd = row.MetricDate
		}
		creatives[row.CreativeID] = struct{}{}
		billingIDs[row.BillingID] = struct{}{}
		sizes[row.CreativeSize] = struct{}{}
		if row.Country != nil {
			countries[*row.Country] = struct{}{}
		}
		result.TotalReachedQueries += row.ReachedQueries
		result.TotalImpressions += row.Impressions
		if row.SpendMicros != nil {
			result.TotalSpendMicros += *row.SpendMicros
		}

		anomalies = append(anomalies, imp.det.Inspect(row, line)...)

		batch = append(batch, row)
		if len(batch) >= imp.cfg.BatchSize {
			if err := flush(); err != nil {
				return imp.abort(ctx, result, counter.bytes, started, err)
			}
		}

		if result.RowsRead%imp.cfg.ProgressInterval == 0 {
			log.Info("import progress",
				"rows_read", result.RowsRead,
				"rows_imported", result.RowsImported,
				"rows_skipped", result.RowsSkipped,
			)
		}
	}

	if err := flush(); err != nil {
		return imp.abort(ctx, result, counter.bytes, started, err)
	}

	result.AnomalyCount = len(anomalies)
	if len(anomalies) > 0 {
		if _, err := imp.store.SaveAnomalies(ctx, result.BatchID, anomalies); err != nil {
			// Anomalies are review metadata; losing them must not fail an
			// import whose rows are already committed.
			log.Warn("failed to save anomalies", "error", err)
		}
	}

	result.UniqueCreatives = len(creatives)
	result.BillingIDs = sortedKeys(billingIDs)
	result.Sizes = sortedKeys(sizes)
	result.Countries = sortedKeys(countries)
	result.FileSizeBytes = counter.bytes
	result.Duration = time.Since(started)

	if err := imp.store.RecordImport(ctx, result); err != nil {
		log.Warn("failed to record import ledger entry", "error", err)
	}

	log.Info("import complete",
		"rows_read", result.RowsRead,
		"rows_imported", result.RowsImported,
		"rows_duplicate", result.RowsDuplicate,
		"rows_skipped", result.RowsSkipped,
		"anomalies", result.AnomalyCount,
		"duration", result.Duration,
	)
	return result, nil
}

// abort finalizes a run that died mid-file: the ledger entry is still
// written, carrying the fatal error, so the attempt remains auditable.
func (imp *Importer) abort(ctx context.Context, result *ImportResult, bytes int64, started time.Time, cause error) (*ImportResult, error) {
	result.Status = StatusFailed
	result.ErrorMessage = cause.Error()
	result.FileSizeBytes = bytes
	result.Duration = time.Since(started)

	// Best effort with a fresh context: the cause may be the caller's
	// cancellation.
	recordCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := imp.store.RecordImport(recordCtx, result); err != nil {
		imp.log.Warn("failed to record failed import", "batch_id", result.BatchID, "error", err)
	}

	imp.log.Error("import failed",
		"batch_id", result.BatchID,
		"rows_read", result.RowsRead,
		"rows_imported", result.RowsImported,
		"error", cause,
	)
	return result, cause
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func isBlank(record []string) bool {
	for _, v := range record {
		if CleanCell(v) != "" {
			return false
		}
	}
	return true
}

// mappedInSchemaOrder lists mapped canonical names in declaration order so
// results are stable across runs.
func mappedInSchemaOrder(mapped map[string]string) []string {
	out := make([]string, 0, len(mapped))
	for _, f := range schema.Required {
		if _, ok := mapped[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	for _, f := range schema.Optional {
		if _, ok := mapped[f.Name]; ok {
			out = append(out, f.Name)
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
