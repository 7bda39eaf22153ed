package ingest

import "testing"

func i64(v int64) *int64 { return &v }
func str(s string) *string { return &s }

func TestDetector_ClicksExceedImpressions(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())

	row := &CanonicalRow{CreativeID: "c1", Impressions: 100, Clicks: i64(150)}
	got := det.Inspect(row, 5)
	if len(got) != 1 {
		t.Fatalf("Inspect() returned %d anomalies, want 1", len(got))
	}
	a := got[0]
	if a.Type != AnomalyClicksExceedImpressions {
		t.Errorf("Type = %q, want %q", a.Type, AnomalyClicksExceedImpressions)
	}
	if a.RowNumber != 5 || a.CreativeID != "c1" {
		t.Errorf("anomaly identity = (%d, %q), want (5, c1)", a.RowNumber, a.CreativeID)
	}
	if a.Details["clicks"] != int64(150) {
		t.Errorf("Details[clicks] = %v, want 150", a.Details["clicks"])
	}
}

func TestDetector_ClicksEqualImpressionsNotFlagged(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())
	row := &CanonicalRow{Impressions: 100, Clicks: i64(100)}
	// clicks == impressions is CTR 1.0: still a high-CTR flag, but not a
	// clicks_exceed_impressions flag.
	for _, a := range det.Inspect(row, 1) {
		if a.Type == AnomalyClicksExceedImpressions {
			t.Error("clicks equal to impressions must not flag clicks_exceed_impressions")
		}
	}
}

func TestDetector_ExtremelyHighCTR(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())

	tests := []struct {
		name        string
		impressions int64
		clicks      *int64
		want        bool
	}{
		{"above threshold", 1000, i64(600), true},
		{"at threshold", 1000, i64(500), false},
		{"below threshold", 1000, i64(10), false},
		{"sample too small", 50, i64(40), false},
		{"clicks absent", 1000, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := &CanonicalRow{Impressions: tt.impressions, Clicks: tt.clicks}
			found := false
			for _, a := range det.Inspect(row, 1) {
				if a.Type == AnomalyExtremelyHighCTR {
					found = true
				}
			}
			if found != tt.want {
				t.Errorf("high CTR flagged = %v, want %v", found, tt.want)
			}
		})
	}
}

func TestDetector_ZeroImpressionsWithSpend(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())

	flagged := det.Inspect(&CanonicalRow{Impressions: 0, SpendMicros: i64(5000000)}, 1)
	if len(flagged) != 1 || flagged[0].Type != AnomalyZeroImpressionsSpend {
		t.Fatalf("Inspect() = %v, want one zero_impressions_with_spend", flagged)
	}

	// Zero spend and absent spend are different things; neither flags.
	if got := det.Inspect(&CanonicalRow{Impressions: 0, SpendMicros: i64(0)}, 1); len(got) != 0 {
		t.Errorf("zero spend flagged: %v", got)
	}
	if got := det.Inspect(&CanonicalRow{Impressions: 0}, 1); len(got) != 0 {
		t.Errorf("absent spend flagged: %v", got)
	}
}

func TestDetector_MultipleMatches(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())
	// Exceeds impressions and blows past the CTR threshold at once.
	row := &CanonicalRow{Impressions: 200, Clicks: i64(300), AppID: str("app.one")}
	got := det.Inspect(row, 9)
	if len(got) != 2 {
		t.Fatalf("Inspect() returned %d anomalies, want 2", len(got))
	}
	for _, a := range got {
		if a.AppID == nil || *a.AppID != "app.one" {
			t.Errorf("anomaly should carry the row's app id")
		}
	}
}

func TestDetector_Register(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())
	det.Register(Predicate{
		Name: "no_reached_queries",
		Match: func(r *CanonicalRow) (bool, map[string]any) {
			if r.ReachedQueries != 0 {
				return false, nil
			}
			return true, map[string]any{"impressions": r.Impressions}
		},
	})

	got := det.Inspect(&CanonicalRow{ReachedQueries: 0, Impressions: 10}, 3)
	if len(got) != 1 || got[0].Type != "no_reached_queries" {
		t.Fatalf("registered predicate did not fire: %v", got)
	}
}

func TestDetector_CleanRow(t *testing.T) {
	det := NewDetector(DefaultDetectorConfig())
	row := &CanonicalRow{
		ReachedQueries: 50000,
		Impressions:    48000,
		Clicks:         i64(750),
		SpendMicros:    i64(187500000),
	}
	if got := det.Inspect(row, 2); len(got) != 0 {
		t.Errorf("clean row flagged: %v", got)
	}
}
