package ingest

// mapper.go resolves the file's literal header row to canonical field names
// using the alias tables in internal/schema, and renders the file-level
// accept/reject decision. This is a pure decision made exactly once per file,
// before any row is read.

import (
	"fmt"
	"strings"

	"github.com/rtbcat/catscan-sub001/internal/schema"
)

// ColumnMap maps canonical field names to the literal header that matched
// and its position in the record.
type ColumnMap map[string]int

// ResolveColumns matches the header row against the required and optional
// alias tables. Matching is exact-string against the literal header; the
// first alias in a field's list that appears in the header wins.
func ResolveColumns(header []string) (ColumnMap, *ValidationReport) {
	pos := make(map[string]int, len(header))
	found := make([]string, 0, len(header))
	for i, h := range header {
		h = CleanCell(h)
		found = append(found, h)
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}

	cols := make(ColumnMap)
	report := &ValidationReport{
		ColumnsFound:  found,
		ColumnsMapped: make(map[string]string),
	}

	match := func(f schema.Field) bool {
		for _, alias := range f.Aliases {
			if i, ok := pos[alias]; ok {
				cols[f.Name] = i
				report.ColumnsMapped[f.Name] = alias
				return true
			}
		}
		return false
	}

	for _, f := range schema.Required {
		if !match(f) {
			report.RequiredMissing = append(report.RequiredMissing, f.Name)
		}
	}
	for _, f := range schema.Optional {
		if !match(f) {
			report.OptionalMissing = append(report.OptionalMissing, f.Name)
		}
	}

	if len(report.RequiredMissing) > 0 {
		report.ErrorMessage = fmt.Sprintf("missing required columns: %s",
			strings.Join(report.RequiredMissing, ", "))
		return nil, report
	}

	report.IsValid = true
	return cols, report
}

// Remediation renders per-field instructions for fixing a rejected export:
// the exact dimension or metric to add in the report configuration. Optional
// misses never appear here; they are informational only.
func (v *ValidationReport) Remediation() string {
	if v.IsValid || len(v.RequiredMissing) == 0 {
		return ""
	}

	var dims, metrics []string
	for _, name := range v.RequiredMissing {
		f, ok := schema.ByName(name)
		if !ok {
			continue
		}
		if f.Metric {
			metrics = append(metrics, f.ReportLabel)
		} else {
			dims = append(dims, f.ReportLabel)
		}
	}

	var b strings.Builder
	b.WriteString("In Authorized Buyers, go to Reports > Create Report.\n")
	if len(dims) > 0 {
		b.WriteString("Under DIMENSIONS, add:\n")
		for _, d := range dims {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	if len(metrics) > 0 {
		b.WriteString("Under METRICS, add:\n")
		for _, m := range metrics {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	b.WriteString("Then run the report and download it as CSV.")
	return b.String()
}
