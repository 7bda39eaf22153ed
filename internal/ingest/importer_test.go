package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeStore is an in-memory Store that mimics the upsert-by-key semantics of
// the real one.
type fakeStore struct {
	rows      map[string]*CanonicalRow
	anomalies []Anomaly
	ledger    []*ImportResult

	upsertErr error
	rowErr    func(*CanonicalRow) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*CanonicalRow)}
}

func (f *fakeStore) UpsertRows(ctx context.Context, rows []*CanonicalRow) (BatchOutcome, error) {
	if f.upsertErr != nil {
		return BatchOutcome{}, f.upsertErr
	}
	var out BatchOutcome
	for _, r := range rows {
		if f.rowErr != nil {
			if err := f.rowErr(r); err != nil {
				out.Failed = append(out.Failed, RowFailure{RowKey: r.RowKey, Err: err})
				continue
			}
		}
		if _, exists := f.rows[r.RowKey]; exists {
			out.Updated++
		} else {
			out.Inserted++
		}
		f.rows[r.RowKey] = r
	}
	return out, nil
}

func (f *fakeStore) SaveAnomalies(ctx context.Context, batchID string, anomalies []Anomaly) (int, error) {
	f.anomalies = append(f.anomalies, anomalies...)
	return len(anomalies), nil
}

func (f *fakeStore) RecordImport(ctx context.Context, res *ImportResult) error {
	f.ledger = append(f.ledger, res)
	return nil
}

const sampleHeader = "#Creative ID,#Day,#Billing ID,#Creative size,#Reached queries,#Impressions,#Clicks,#Spend\n"

func runImport(t *testing.T, st Store, csvText string) (*ImportResult, error) {
	t.Helper()
	imp := New(st, DefaultConfig(), nil)
	return imp.Import(context.Background(), strings.NewReader(csvText), "test.csv")
}

func TestImport_SingleCleanRow(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"144634,11/29/2025,abc123,300x250,50000,48000,750,187.50\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.Status != StatusComplete {
		t.Errorf("Status = %q, want %q", res.Status, StatusComplete)
	}
	if res.RowsRead != 1 || res.RowsImported != 1 || res.RowsSkipped != 0 {
		t.Errorf("counts = read %d imported %d skipped %d, want 1/1/0",
			res.RowsRead, res.RowsImported, res.RowsSkipped)
	}
	if len(st.rows) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(st.rows))
	}
	for _, row := range st.rows {
		if row.MetricDate != "2025-11-29" {
			t.Errorf("MetricDate = %q, want 2025-11-29", row.MetricDate)
		}
		if row.SpendMicros == nil || *row.SpendMicros != 187500000 {
			t.Errorf("SpendMicros = %v, want 187500000", row.SpendMicros)
		}
		if row.BatchID != res.BatchID {
			t.Errorf("row BatchID = %q, want %q", row.BatchID, res.BatchID)
		}
	}
	if res.AnomalyCount != 0 || len(st.anomalies) != 0 {
		t.Errorf("clean row produced anomalies: %v", st.anomalies)
	}
	if res.TotalSpendMicros != 187500000 {
		t.Errorf("TotalSpendMicros = %d, want 187500000", res.TotalSpendMicros)
	}
	if len(st.ledger) != 1 || st.ledger[0].BatchID != res.BatchID {
		t.Errorf("ledger = %v, want exactly one entry for the batch", st.ledger)
	}
}

func TestImport_RejectedFile(t *testing.T) {
	st := newFakeStore()
	// Billing ID column missing entirely.
	_, err := runImport(t, st,
		"#Creative ID,#Day,#Creative size,#Reached queries,#Impressions\n"+
			"c1,2025-11-29,300x250,10,5\n")

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Import() error = %v, want *RejectedError", err)
	}
	if rejected.Report.IsValid {
		t.Error("rejected report marked valid")
	}
	if len(rejected.Report.RequiredMissing) != 1 || rejected.Report.RequiredMissing[0] != "billing_id" {
		t.Errorf("RequiredMissing = %v, want [billing_id]", rejected.Report.RequiredMissing)
	}
	if len(st.rows) != 0 {
		t.Errorf("rejected file wrote %d rows, want 0", len(st.rows))
	}
	if len(st.ledger) != 0 {
		t.Errorf("rejected file recorded %d ledger entries, want 0", len(st.ledger))
	}
}

func TestImport_RowLevelTolerance(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"+
		"c2,not-a-date,b1,300x250,10,5,1,0.10\n"+
		"c3,11/29/2025,b1,728x90,20,15,2,0.20\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.RowsRead != 3 || res.RowsImported != 2 || res.RowsSkipped != 1 {
		t.Errorf("counts = read %d imported %d skipped %d, want 3/2/1",
			res.RowsRead, res.RowsImported, res.RowsSkipped)
	}
	if len(res.SkipExamples) != 1 || !strings.Contains(res.SkipExamples[0], "unparseable date") {
		t.Errorf("SkipExamples = %v, want one unparseable-date entry", res.SkipExamples)
	}
	if res.Status != StatusComplete {
		t.Errorf("Status = %q, want complete despite skips", res.Status)
	}
}

func TestImport_Idempotent(t *testing.T) {
	st := newFakeStore()
	content := sampleHeader +
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n" +
		"c2,11/29/2025,b1,728x90,20,15,2,0.20\n"

	first, err := runImport(t, st, content)
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	if first.RowsImported != 2 || first.RowsDuplicate != 0 {
		t.Fatalf("first run = imported %d duplicate %d, want 2/0", first.RowsImported, first.RowsDuplicate)
	}

	second, err := runImport(t, st, content)
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if second.RowsImported != 0 || second.RowsDuplicate != 2 {
		t.Errorf("second run = imported %d duplicate %d, want 0/2", second.RowsImported, second.RowsDuplicate)
	}
	if len(st.rows) != 2 {
		t.Errorf("store holds %d rows after re-import, want 2", len(st.rows))
	}
}

func TestImport_ReimportReplacesMetrics(t *testing.T) {
	st := newFakeStore()
	if _, err := runImport(t, st, sampleHeader+"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"); err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	// Same slice, refreshed metrics.
	if _, err := runImport(t, st, sampleHeader+"c1,11/29/2025,b1,300x250,99,80,9,2.00\n"); err != nil {
		t.Fatalf("second Import() error = %v", err)
	}

	if len(st.rows) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(st.rows))
	}
	for _, row := range st.rows {
		if row.Impressions != 80 {
			t.Errorf("Impressions = %d, want 80 (replaced, not summed)", row.Impressions)
		}
		if row.SpendMicros == nil || *row.SpendMicros != 2000000 {
			t.Errorf("SpendMicros = %v, want 2000000", row.SpendMicros)
		}
	}
}

func TestImport_DuplicateWithinFile(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"+
		"c1,11/29/2025,b1,300x250,30,25,3,0.30\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.RowsImported != 1 || res.RowsDuplicate != 1 {
		t.Errorf("counts = imported %d duplicate %d, want 1/1", res.RowsImported, res.RowsDuplicate)
	}
	for _, row := range st.rows {
		if row.Impressions != 25 {
			t.Errorf("Impressions = %d, want 25 (last occurrence wins)", row.Impressions)
		}
	}
}

func TestImport_BlankRowsIgnored(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"+
		",,,,,,,\n"+
		"\n"+
		"c2,11/29/2025,b1,728x90,20,15,2,0.20\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.RowsRead != 2 || res.RowsSkipped != 0 {
		t.Errorf("counts = read %d skipped %d, want blank rows uncounted (2/0)", res.RowsRead, res.RowsSkipped)
	}
}

func TestImport_BOMHeader(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, "\ufeff"+sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n")
	if err != nil {
		t.Fatalf("Import() with BOM error = %v", err)
	}
	if res.RowsImported != 1 {
		t.Errorf("RowsImported = %d, want 1", res.RowsImported)
	}
}

func TestImport_AnomaliesRecordedButNotBlocking(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,1000,100,150,0.10\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.RowsImported != 1 {
		t.Errorf("RowsImported = %d, anomalous row must still import", res.RowsImported)
	}
	if res.AnomalyCount == 0 || len(st.anomalies) == 0 {
		t.Fatal("clicks > impressions must be flagged")
	}
	found := false
	for _, a := range st.anomalies {
		if a.Type == AnomalyClicksExceedImpressions {
			found = true
		}
	}
	if !found {
		t.Errorf("anomalies = %v, want clicks_exceed_impressions", st.anomalies)
	}
}

func TestImport_StatsCoverAcceptedRowsOnly(t *testing.T) {
	st := newFakeStore()
	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,,\n"+
		"c2,11/01/2025,b2,728x90,20,15,,\n"+
		"c3,not-a-date,b3,160x600,1000,900,,\n")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.DateRangeStart != "2025-11-01" || res.DateRangeEnd != "2025-11-29" {
		t.Errorf("date range = %s..%s, want 2025-11-01..2025-11-29", res.DateRangeStart, res.DateRangeEnd)
	}
	if res.UniqueCreatives != 2 {
		t.Errorf("UniqueCreatives = %d, want 2 (skipped row excluded)", res.UniqueCreatives)
	}
	if res.TotalImpressions != 20 {
		t.Errorf("TotalImpressions = %d, want 20", res.TotalImpressions)
	}
	wantBilling := []string{"b1", "b2"}
	if len(res.BillingIDs) != 2 || res.BillingIDs[0] != wantBilling[0] || res.BillingIDs[1] != wantBilling[1] {
		t.Errorf("BillingIDs = %v, want %v", res.BillingIDs, wantBilling)
	}
}

func TestImport_RowWriteFailureCountedNotFatal(t *testing.T) {
	st := newFakeStore()
	st.rowErr = func(r *CanonicalRow) error {
		if r.CreativeID == "c2" {
			return fmt.Errorf("deadlock detected")
		}
		return nil
	}

	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"+
		"c2,11/29/2025,b1,300x250,10,5,1,0.10\n"+
		"c3,11/29/2025,b1,728x90,20,15,2,0.20\n")
	if err != nil {
		t.Fatalf("Import() error = %v, row failure must not abort the batch", err)
	}

	if res.Status != StatusComplete {
		t.Errorf("Status = %q, want complete", res.Status)
	}
	if res.RowsImported != 2 || res.RowsSkipped != 1 {
		t.Errorf("counts = imported %d skipped %d, want 2/1", res.RowsImported, res.RowsSkipped)
	}
	if len(res.SkipExamples) != 1 || !strings.Contains(res.SkipExamples[0], "deadlock detected") {
		t.Errorf("SkipExamples = %v, want the write failure reason", res.SkipExamples)
	}
	if len(st.rows) != 2 {
		t.Errorf("store holds %d rows, want 2", len(st.rows))
	}
}

func TestImport_SkipExamplesCapped(t *testing.T) {
	st := newFakeStore()

	var b strings.Builder
	b.WriteString(sampleHeader)
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "c%d,not-a-date,b1,300x250,10,5,1,0.10\n", i)
	}

	res, err := runImport(t, st, b.String())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.RowsSkipped != 30 {
		t.Errorf("RowsSkipped = %d, want 30 (counting continues past the cap)", res.RowsSkipped)
	}
	if len(res.SkipExamples) != 20 {
		t.Errorf("len(SkipExamples) = %d, want 20", len(res.SkipExamples))
	}
}

func TestImport_StoreFailureRecordsFailedLedger(t *testing.T) {
	st := newFakeStore()
	st.upsertErr = fmt.Errorf("connection reset")

	res, err := runImport(t, st, sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n")
	if err == nil {
		t.Fatal("Import() error = nil, want store failure")
	}
	if res == nil || res.Status != StatusFailed {
		t.Fatalf("result = %+v, want failed status", res)
	}
	if len(st.ledger) != 1 || st.ledger[0].Status != StatusFailed {
		t.Errorf("ledger = %v, want exactly one failed entry", st.ledger)
	}
	if st.ledger[0].ErrorMessage == "" {
		t.Error("failed ledger entry should carry the error message")
	}
}

func TestImport_Cancellation(t *testing.T) {
	st := newFakeStore()
	imp := New(st, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := imp.Import(ctx, strings.NewReader(sampleHeader+
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"), "test.csv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Import() error = %v, want context.Canceled", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	// The attempt still lands on the ledger.
	if len(st.ledger) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(st.ledger))
	}
}

func TestValidate_DoesNotWrite(t *testing.T) {
	st := newFakeStore()
	imp := New(st, DefaultConfig(), nil)

	report := imp.Validate(strings.NewReader(sampleHeader +
		"c1,11/29/2025,b1,300x250,10,5,1,0.10\n"))
	if !report.IsValid {
		t.Fatalf("Validate() rejected valid header: %s", report.ErrorMessage)
	}
	if len(st.rows) != 0 || len(st.ledger) != 0 {
		t.Error("Validate() must not touch the store")
	}
}

func TestImport_BatchingAcrossFlushes(t *testing.T) {
	st := newFakeStore()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	imp := New(st, cfg, nil)

	var b strings.Builder
	b.WriteString(sampleHeader)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "c%d,11/29/2025,b1,300x250,10,5,1,0.10\n", i)
	}

	res, err := imp.Import(context.Background(), strings.NewReader(b.String()), "test.csv")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.RowsImported != 5 {
		t.Errorf("RowsImported = %d, want 5 across three flushes", res.RowsImported)
	}
	if len(st.rows) != 5 {
		t.Errorf("store holds %d rows, want 5", len(st.rows))
	}
}
