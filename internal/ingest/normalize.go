package ingest

// normalize.go builds a CanonicalRow from one raw record using the resolved
// column map, and computes the row's dimension fingerprint. A row that lacks
// a required value is skipped with a reason; that is a row-level outcome,
// never a file-level one.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/rtbcat/catscan-sub001/internal/schema"
)

// keySentinel stands in for absent optional dimensions inside the
// fingerprint input so that "country missing" and "country empty-string"
// hash identically and rows stay comparable across export configurations.
const keySentinel = "-"

// Normalizer converts raw records into canonical rows for one file.
type Normalizer struct {
	cols ColumnMap
}

func NewNormalizer(cols ColumnMap) *Normalizer {
	return &Normalizer{cols: cols}
}

func (n *Normalizer) cell(record []string, field string) string {
	i, ok := n.cols[field]
	if !ok || i >= len(record) {
		return ""
	}
	return CleanCell(record[i])
}

func (n *Normalizer) optText(record []string, field string) *string {
	s := n.cell(record, field)
	if s == "" {
		return nil
	}
	return &s
}

func (n *Normalizer) optInt(record []string, field string) *int64 {
	v, ok := ParseInt(n.cell(record, field))
	if !ok {
		return nil
	}
	return &v
}

// Row builds a CanonicalRow from a record. On a required-field problem it
// returns a short skip reason instead of a row; the caller counts it and
// moves on.
func (n *Normalizer) Row(record []string) (*CanonicalRow, string) {
	rawDate := n.cell(record, "day")
	metricDate, ok := ParseDate(rawDate)
	if !ok {
		return nil, fmt.Sprintf("unparseable date %q", rawDate)
	}

	creativeID := n.cell(record, "creative_id")
	billingID := n.cell(record, "billing_id")
	creativeSize := n.cell(record, "creative_size")
	switch {
	case creativeID == "":
		return nil, "empty creative_id"
	case billingID == "":
		return nil, "empty billing_id"
	case creativeSize == "":
		return nil, "empty creative_size"
	}

	reached, ok := ParseInt(n.cell(record, "reached_queries"))
	if !ok {
		return nil, fmt.Sprintf("unparseable reached_queries %q", n.cell(record, "reached_queries"))
	}
	impressions, ok := ParseInt(n.cell(record, "impressions"))
	if !ok {
		return nil, fmt.Sprintf("unparseable impressions %q", n.cell(record, "impressions"))
	}

	row := &CanonicalRow{
		MetricDate:     metricDate,
		CreativeID:     creativeID,
		BillingID:      billingID,
		CreativeSize:   creativeSize,
		ReachedQueries: reached,
		Impressions:    impressions,

		Hour:             n.optInt(record, "hour"),
		CreativeFormat:   n.optText(record, "creative_format"),
		Country:          n.optText(record, "country"),
		Platform:         n.optText(record, "platform"),
		Environment:      n.optText(record, "environment"),
		AppID:            n.optText(record, "app_id"),
		AppName:          n.optText(record, "app_name"),
		PublisherID:      n.optText(record, "publisher_id"),
		PublisherName:    n.optText(record, "publisher_name"),
		PublisherDomain:  n.optText(record, "publisher_domain"),
		DealID:           n.optText(record, "deal_id"),
		DealName:         n.optText(record, "deal_name"),
		TransactionType:  n.optText(record, "transaction_type"),
		Advertiser:       n.optText(record, "advertiser"),
		BuyerAccountID:   n.optText(record, "buyer_account_id"),
		BuyerAccountName: n.optText(record, "buyer_account_name"),

		Clicks:               n.optInt(record, "clicks"),
		VideoStarts:          n.optInt(record, "video_starts"),
		VideoFirstQuartile:   n.optInt(record, "video_first_quartile"),
		VideoMidpoint:        n.optInt(record, "video_midpoint"),
		VideoThirdQuartile:   n.optInt(record, "video_third_quartile"),
		VideoCompletions:     n.optInt(record, "video_completions"),
		VastErrors:           n.optInt(record, "vast_errors"),
		EngagedViews:         n.optInt(record, "engaged_views"),
		ActiveViewMeasurable: n.optInt(record, "active_view_measurable"),
		ActiveViewViewable:   n.optInt(record, "active_view_viewable"),

		GmaSDK:   ParseBool(n.cell(record, "gma_sdk")),
		BuyerSDK: ParseBool(n.cell(record, "buyer_sdk")),
	}

	if v, ok := ParseMoneyMicros(n.cell(record, "spend")); ok {
		row.SpendMicros = &v
	}

	// The console exports placeholder values for open-auction rows.
	if row.DealID != nil && *row.DealID == "0" {
		row.DealID = nil
	}
	if row.DealName != nil && *row.DealName == "(none)" {
		row.DealName = nil
	}

	row.RowKey = RowKey(row)
	return row, ""
}

// RowKey computes the dimension fingerprint: the schema.KeyFields values in
// their fixed order, joined with "|", hashed with SHA-256. Metric fields are
// never part of the input, so a re-sent slice with refreshed metrics lands on
// the same key and overwrites in place.
func RowKey(r *CanonicalRow) string {
	parts := make([]string, 0, len(schema.KeyFields))
	for _, f := range schema.KeyFields {
		parts = append(parts, keyValue(r, f))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func keyValue(r *CanonicalRow, field string) string {
	opt := func(p *string) string {
		if p == nil {
			return keySentinel
		}
		return *p
	}
	switch field {
	case "day":
		return r.MetricDate
	case "hour":
		if r.Hour == nil {
			return keySentinel
		}
		return strconv.FormatInt(*r.Hour, 10)
	case "creative_id":
		return r.CreativeID
	case "billing_id":
		return r.BillingID
	case "creative_size":
		return r.CreativeSize
	case "country":
		return opt(r.Country)
	case "platform":
		return opt(r.Platform)
	case "environment":
		return opt(r.Environment)
	case "app_id":
		return opt(r.AppID)
	case "publisher_id":
		return opt(r.PublisherID)
	case "deal_id":
		return opt(r.DealID)
	case "advertiser":
		return opt(r.Advertiser)
	case "buyer_account_id":
		return opt(r.BuyerAccountID)
	default:
		return keySentinel
	}
}
