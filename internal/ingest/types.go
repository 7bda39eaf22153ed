// Package ingest implements the performance-report import pipeline: header
// validation, value parsing, row normalization, anomaly detection, and batched
// idempotent writes. It has no HTTP or SQL dependencies; persistence goes
// through the Store interface.
package ingest

import (
	"context"
	"time"
)

// CanonicalRow is one normalized report row. Required fields are always
// populated on any row that reaches the writer. Absent optional values stay
// nil so that "no value" and "zero" remain distinguishable downstream.
type CanonicalRow struct {
	MetricDate   string // YYYY-MM-DD
	Hour         *int64
	CreativeID   string
	BillingID    string
	CreativeSize string

	CreativeFormat   *string
	Country          *string
	Platform         *string
	Environment      *string
	AppID            *string
	AppName          *string
	PublisherID      *string
	PublisherName    *string
	PublisherDomain  *string
	DealID           *string
	DealName         *string
	TransactionType  *string
	Advertiser       *string
	BuyerAccountID   *string
	BuyerAccountName *string

	ReachedQueries int64
	Impressions    int64

	Clicks               *int64
	SpendMicros          *int64
	VideoStarts          *int64
	VideoFirstQuartile   *int64
	VideoMidpoint        *int64
	VideoThirdQuartile   *int64
	VideoCompletions     *int64
	VastErrors           *int64
	EngagedViews         *int64
	ActiveViewMeasurable *int64
	ActiveViewViewable   *int64

	GmaSDK   bool
	BuyerSDK bool

	// RowKey is the dimension fingerprint used as the upsert key. Computed
	// once at normalization time, never shown to users.
	RowKey  string
	BatchID string
}

// Anomaly is a fraud/quality flag attached to a row that imported anyway.
// Anomalies never block or alter the write.
type Anomaly struct {
	Type       string
	RowNumber  int
	CreativeID string
	AppID      *string
	AppName    *string
	Details    map[string]any
}

// ValidationReport is the file-level gate decision, produced once per file
// before any row is touched.
type ValidationReport struct {
	IsValid         bool              `json:"isValid"`
	ColumnsFound    []string          `json:"columnsFound"`
	ColumnsMapped   map[string]string `json:"columnsMapped"`
	RequiredMissing []string          `json:"requiredMissing"`
	OptionalMissing []string          `json:"optionalMissing"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
}

// Import lifecycle statuses recorded on the ledger.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ImportResult summarizes one import invocation. Exactly one is recorded on
// the ledger for every file that passes header validation, whatever happens
// to the individual rows.
type ImportResult struct {
	BatchID      string `json:"batchId"`
	SourceName   string `json:"sourceName"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	RowsRead      int `json:"rowsRead"`
	RowsImported  int `json:"rowsImported"`
	RowsSkipped   int `json:"rowsSkipped"`
	RowsDuplicate int `json:"rowsDuplicate"`

	DateRangeStart string `json:"dateRangeStart,omitempty"`
	DateRangeEnd   string `json:"dateRangeEnd,omitempty"`

	UniqueCreatives int      `json:"uniqueCreatives"`
	BillingIDs      []string `json:"billingIds"`
	Sizes           []string `json:"sizes"`
	Countries       []string `json:"countries"`

	TotalReachedQueries int64 `json:"totalReachedQueries"`
	TotalImpressions    int64 `json:"totalImpressions"`
	TotalSpendMicros    int64 `json:"totalSpendMicros"`

	ColumnsImported []string `json:"columnsImported"`
	OptionalMissing []string `json:"optionalMissing"`

	// SkipExamples holds up to MaxSkipExamples row-level skip reasons for
	// display; the full count is RowsSkipped.
	SkipExamples []string `json:"skipExamples,omitempty"`

	AnomalyCount  int           `json:"anomalyCount"`
	FileSizeBytes int64         `json:"fileSizeBytes"`
	Duration      time.Duration `json:"-"`
}

// RowFailure is a single row whose write failed inside an otherwise
// successful batch flush.
type RowFailure struct {
	RowKey string
	Err    error
}

// BatchOutcome reports what one batch flush did.
type BatchOutcome struct {
	Inserted int
	Updated  int
	Failed   []RowFailure
}

// Store is the persistence boundary of the pipeline. Implementations must
// make UpsertRows idempotent by RowKey: first sight inserts, later sight
// overwrites metric fields in place.
type Store interface {
	UpsertRows(ctx context.Context, rows []*CanonicalRow) (BatchOutcome, error)
	SaveAnomalies(ctx context.Context, batchID string, anomalies []Anomaly) (int, error)
	RecordImport(ctx context.Context, res *ImportResult) error
}

// RejectedError is returned by Import when the file fails header validation.
// Nothing was written and no ledger entry exists; the report carries the
// remediation detail for the caller.
type RejectedError struct {
	Report *ValidationReport
}

func (e *RejectedError) Error() string {
	return e.Report.ErrorMessage
}
