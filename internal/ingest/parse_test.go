package ingest

import "testing"

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"11/30/2025", "2025-11-30", true},
		{"11/30/25", "2025-11-30", true},
		{"2025-11-30", "2025-11-30", true},
		{"1/2/2026", "2026-01-02", true},
		{" 2025-11-30 ", "2025-11-30", true},
		{"", "", false},
		{"30th November", "", false},
		{"13/45/2025", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseDate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"1234", 1234, true},
		{"1,234,567", 1234567, true},
		{" 42 ", 42, true},
		{"0", 0, true},
		{"-5", -5, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"12.5", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseInt(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseInt(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

// The same amount written three ways must parse to the same micros.
func TestParseMoneyMicros_EquivalentSpellings(t *testing.T) {
	const want = int64(1234560000)
	for _, in := range []string{"1234.56", "1,234.56", "$1,234.56"} {
		got, ok := ParseMoneyMicros(in)
		if !ok || got != want {
			t.Errorf("ParseMoneyMicros(%q) = (%d, %v), want (%d, true)", in, got, ok, want)
		}
	}
}

func TestParseMoneyMicros(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"187.50", 187500000, true},
		{"0", 0, true},
		{"0.000001", 1, true},
		{"€3.14", 3140000, true},
		{"£10", 10000000, true},
		{"", 0, false},
		{"free", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseMoneyMicros(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseMoneyMicros(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseBool(t *testing.T) {
	trues := []string{"TRUE", "true", "True", "1", "YES", "yes", " true "}
	for _, in := range trues {
		if !ParseBool(in) {
			t.Errorf("ParseBool(%q) = false, want true", in)
		}
	}
	falses := []string{"", "FALSE", "0", "no", "maybe"}
	for _, in := range falses {
		if ParseBool(in) {
			t.Errorf("ParseBool(%q) = true, want false", in)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{`="0012345"`, "0012345"},
		{`=""`, ""},
		{`="unterminated`, `="unterminated`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
