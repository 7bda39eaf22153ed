package ingest

import (
	"strings"
	"testing"
)

// rowFixture normalizes a single record through a header that carries the
// required columns plus a few dimensions and metrics.
var fixtureHeader = []string{
	"Day", "Creative ID", "Billing ID", "Creative size",
	"Reached queries", "Impressions",
	"Country", "Mobile app name", "Deal ID", "Deal name", "Clicks", "Spend (bidder currency)",
}

func normalizeOne(t *testing.T, record []string) (*CanonicalRow, string) {
	t.Helper()
	cols, report := ResolveColumns(fixtureHeader)
	if !report.IsValid {
		t.Fatalf("fixture header rejected: %s", report.ErrorMessage)
	}
	return NewNormalizer(cols).Row(record)
}

func TestRow_Complete(t *testing.T) {
	row, reason := normalizeOne(t, []string{
		"11/29/2025", "144634", "abc123", "300x250",
		"50000", "48000",
		"US", "Cool Game", "7", "Premium deal", "750", "187.50",
	})
	if reason != "" {
		t.Fatalf("Row() skipped: %s", reason)
	}

	if row.MetricDate != "2025-11-29" {
		t.Errorf("MetricDate = %q, want 2025-11-29", row.MetricDate)
	}
	if row.ReachedQueries != 50000 || row.Impressions != 48000 {
		t.Errorf("counts = (%d, %d), want (50000, 48000)", row.ReachedQueries, row.Impressions)
	}
	if row.Clicks == nil || *row.Clicks != 750 {
		t.Errorf("Clicks = %v, want 750", row.Clicks)
	}
	if row.SpendMicros == nil || *row.SpendMicros != 187500000 {
		t.Errorf("SpendMicros = %v, want 187500000", row.SpendMicros)
	}
	if row.Country == nil || *row.Country != "US" {
		t.Errorf("Country = %v, want US", row.Country)
	}
	if row.RowKey == "" {
		t.Error("RowKey not computed")
	}
}

func TestRow_RequiredFieldProblems(t *testing.T) {
	tests := []struct {
		name       string
		record     []string
		wantReason string
	}{
		{
			name:       "bad date",
			record:     []string{"not-a-date", "c1", "b1", "300x250", "10", "5", "", "", "", "", "", ""},
			wantReason: "unparseable date",
		},
		{
			name:       "empty creative_id",
			record:     []string{"2025-11-29", "", "b1", "300x250", "10", "5", "", "", "", "", "", ""},
			wantReason: "empty creative_id",
		},
		{
			name:       "empty billing_id",
			record:     []string{"2025-11-29", "c1", "", "300x250", "10", "5", "", "", "", "", "", ""},
			wantReason: "empty billing_id",
		},
		{
			name:       "non-numeric impressions",
			record:     []string{"2025-11-29", "c1", "b1", "300x250", "10", "lots", "", "", "", "", "", ""},
			wantReason: "unparseable impressions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, reason := normalizeOne(t, tt.record)
			if row != nil {
				t.Fatal("Row() returned a row, want skip")
			}
			if !strings.Contains(reason, tt.wantReason) {
				t.Errorf("reason = %q, want contains %q", reason, tt.wantReason)
			}
		})
	}
}

func TestRow_OptionalAbsentStaysNil(t *testing.T) {
	row, reason := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"", "", "", "", "", "",
	})
	if reason != "" {
		t.Fatalf("Row() skipped: %s", reason)
	}
	if row.Clicks != nil {
		t.Errorf("Clicks = %d, want nil for empty cell", *row.Clicks)
	}
	if row.SpendMicros != nil {
		t.Errorf("SpendMicros = %d, want nil for empty cell", *row.SpendMicros)
	}
	if row.Country != nil {
		t.Errorf("Country = %q, want nil for empty cell", *row.Country)
	}
}

func TestRow_PlaceholderDealScrubbing(t *testing.T) {
	row, reason := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "", "0", "(none)", "", "",
	})
	if reason != "" {
		t.Fatalf("Row() skipped: %s", reason)
	}
	if row.DealID != nil {
		t.Errorf("DealID = %q, want nil for placeholder 0", *row.DealID)
	}
	if row.DealName != nil {
		t.Errorf("DealName = %q, want nil for placeholder (none)", *row.DealName)
	}
}

func TestRowKey_Deterministic(t *testing.T) {
	record := []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "Cool Game", "7", "d", "3", "1.00",
	}
	a, _ := normalizeOne(t, record)
	b, _ := normalizeOne(t, record)
	if a.RowKey != b.RowKey {
		t.Errorf("same record produced different keys: %s vs %s", a.RowKey, b.RowKey)
	}
	if len(a.RowKey) != 64 {
		t.Errorf("RowKey length = %d, want 64 hex chars", len(a.RowKey))
	}
}

func TestRowKey_MetricsExcluded(t *testing.T) {
	a, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "", "", "", "3", "1.00",
	})
	b, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "99999", "88888",
		"US", "", "", "", "700", "250.00",
	})
	if a.RowKey != b.RowKey {
		t.Error("rows differing only in metrics must share a key")
	}
}

func TestRowKey_DescriptiveFieldsExcluded(t *testing.T) {
	// app_name describes the app, it does not identify the slice.
	a, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "Old App Name", "", "", "", "",
	})
	b, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "New App Name", "", "", "", "",
	})
	if a.RowKey != b.RowKey {
		t.Error("rows differing only in app_name must share a key")
	}
}

func TestRowKey_DimensionsIncluded(t *testing.T) {
	base := []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"US", "", "", "", "", "",
	}
	a, _ := normalizeOne(t, base)

	changed := make([]string, len(base))
	copy(changed, base)
	changed[6] = "DE" // country
	b, _ := normalizeOne(t, changed)

	if a.RowKey == b.RowKey {
		t.Error("rows differing in country must not share a key")
	}
}

func TestRowKey_MissingDimensionUsesSentinel(t *testing.T) {
	a, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "10", "5",
		"", "", "", "", "", "",
	})
	b, _ := normalizeOne(t, []string{
		"2025-11-29", "c1", "b1", "300x250", "20", "15",
		"", "", "", "", "", "",
	})
	if a.RowKey != b.RowKey {
		t.Error("rows with the same absent dimensions must share a key")
	}
}
