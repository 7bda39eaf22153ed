package ingest

// parse.go converts raw cell text to typed values. Every parser is total:
// malformed input yields a "no value" result, never a panic or an error for
// the caller to unwind. "No value" and "zero" stay distinct.

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order; the first layout that parses the full
// trimmed string to a real calendar date wins. US month-first forms come
// before day-first, matching how the reporting console exports dates.
var dateLayouts = []string{
	"1/2/2006",   // 11/30/2025
	"1/2/06",     // 11/30/25
	"2006-01-02", // 2025-11-30
	"2/1/2006",   // 30/11/2025
}

// ParseDate normalizes a date string to YYYY-MM-DD.
// Returns ok=false when no layout matches.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ParseInt parses an integer cell, tolerating thousands separators and
// surrounding whitespace. Empty or non-numeric input returns ok=false, not
// zero: a missing count must never masquerade as a count of zero.
func ParseInt(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseMoneyMicros parses a currency amount into integer micros
// (round(amount * 1e6)), stripping currency symbols and separators.
// Summing micros avoids the drift that accumulates when floats are summed.
func ParseMoneyMicros(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 1_000_000)), true
}

// ParseBool maps TRUE/1/YES (case-insensitive) to true and everything else,
// including empty, to false. Boolean columns have no null state.
func ParseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "1", "YES":
		return true
	default:
		return false
	}
}

// CleanCell trims whitespace and unwraps the Excel formula guard (="value")
// some export tools add to preserve leading zeros.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}
