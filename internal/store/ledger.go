package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rtbcat/catscan-sub001/internal/ingest"
)

// ErrBatchNotFound is returned when a ledger entry does not exist.
var ErrBatchNotFound = errors.New("import batch not found")

// LedgerEntry is one recorded import attempt, as read back from the ledger.
type LedgerEntry struct {
	BatchID             string    `json:"batchId"`
	SourceName          string    `json:"sourceName"`
	ImportedAt          time.Time `json:"importedAt"`
	Status              string    `json:"status"`
	ErrorMessage        *string   `json:"errorMessage,omitempty"`
	RowsRead            int64     `json:"rowsRead"`
	RowsImported        int64     `json:"rowsImported"`
	RowsSkipped         int64     `json:"rowsSkipped"`
	RowsDuplicate       int64     `json:"rowsDuplicate"`
	DateRangeStart      *string   `json:"dateRangeStart,omitempty"`
	DateRangeEnd        *string   `json:"dateRangeEnd,omitempty"`
	UniqueCreatives     int64     `json:"uniqueCreatives"`
	BillingIDs          []string  `json:"billingIds"`
	ColumnsImported     []string  `json:"columnsImported"`
	ColumnsMissing      []string  `json:"columnsMissing"`
	SkipExamples        []string  `json:"skipExamples,omitempty"`
	TotalReachedQueries int64     `json:"totalReachedQueries"`
	TotalImpressions    int64     `json:"totalImpressions"`
	TotalSpendMicros    int64     `json:"totalSpendMicros"`
	AnomalyCount        int64     `json:"anomalyCount"`
	FileSizeBytes       int64     `json:"fileSizeBytes"`
}

// RecordImport writes the single audit entry for one import invocation.
func (s *Store) RecordImport(ctx context.Context, res *ingest.ImportResult) error {
	var start, end *string
	if res.DateRangeStart != "" {
		start = &res.DateRangeStart
	}
	if res.DateRangeEnd != "" {
		end = &res.DateRangeEnd
	}
	var errMsg *string
	if res.ErrorMessage != "" {
		errMsg = &res.ErrorMessage
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO import_batches (
			batch_id, source_name, status, error_message,
			rows_read, rows_imported, rows_skipped, rows_duplicate,
			date_range_start, date_range_end,
			unique_creatives, billing_ids, columns_imported, columns_missing, skip_examples,
			total_reached_queries, total_impressions, total_spend_micros,
			anomaly_count, file_size_bytes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		res.BatchID, res.SourceName, res.Status, errMsg,
		res.RowsRead, res.RowsImported, res.RowsSkipped, res.RowsDuplicate,
		start, end,
		res.UniqueCreatives, res.BillingIDs, res.ColumnsImported, res.OptionalMissing, res.SkipExamples,
		res.TotalReachedQueries, res.TotalImpressions, res.TotalSpendMicros,
		res.AnomalyCount, res.FileSizeBytes,
	)
	if err != nil {
		return fmt.Errorf("record import %s: %w", res.BatchID, err)
	}
	return nil
}

const ledgerColumns = `
	batch_id, source_name, imported_at, status, error_message,
	rows_read, rows_imported, rows_skipped, rows_duplicate,
	to_char(date_range_start, 'YYYY-MM-DD'), to_char(date_range_end, 'YYYY-MM-DD'),
	unique_creatives, billing_ids, columns_imported, columns_missing, skip_examples,
	total_reached_queries, total_impressions, total_spend_micros,
	anomaly_count, file_size_bytes`

func scanLedgerEntry(row pgx.Row) (*LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(
		&e.BatchID, &e.SourceName, &e.ImportedAt, &e.Status, &e.ErrorMessage,
		&e.RowsRead, &e.RowsImported, &e.RowsSkipped, &e.RowsDuplicate,
		&e.DateRangeStart, &e.DateRangeEnd,
		&e.UniqueCreatives, &e.BillingIDs, &e.ColumnsImported, &e.ColumnsMissing, &e.SkipExamples,
		&e.TotalReachedQueries, &e.TotalImpressions, &e.TotalSpendMicros,
		&e.AnomalyCount, &e.FileSizeBytes,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListImports returns ledger entries newest first.
func (s *Store) ListImports(ctx context.Context, limit, offset int) ([]*LedgerEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM import_batches
		 ORDER BY imported_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetImport fetches one ledger entry by its batch id.
func (s *Store) GetImport(ctx context.Context, batchID string) (*LedgerEntry, error) {
	e, err := scanLedgerEntry(s.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM import_batches WHERE batch_id = $1`, batchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
