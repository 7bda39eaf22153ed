package store

import (
	"context"

	"github.com/rtbcat/catscan-sub001/internal/ingest"
)

// upsertRowSQL replaces metric fields on conflict; dimension fields are part
// of the key's input and cannot differ for the same row_key. (xmax = 0)
// distinguishes a fresh insert from an overwrite of an existing key.
const upsertRowSQL = `
INSERT INTO report_rows (
	row_key, metric_date, hour, creative_id, billing_id, creative_size,
	creative_format, country, platform, environment,
	app_id, app_name, publisher_id, publisher_name, publisher_domain,
	deal_id, deal_name, transaction_type,
	advertiser, buyer_account_id, buyer_account_name,
	reached_queries, impressions, clicks, spend_micros,
	video_starts, video_first_quartile, video_midpoint, video_third_quartile,
	video_completions, vast_errors, engaged_views,
	active_view_measurable, active_view_viewable,
	gma_sdk, buyer_sdk, import_batch_id
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
	$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
	$31, $32, $33, $34, $35, $36, $37
)
ON CONFLICT (row_key) DO UPDATE SET
	reached_queries        = EXCLUDED.reached_queries,
	impressions            = EXCLUDED.impressions,
	clicks                 = EXCLUDED.clicks,
	spend_micros           = EXCLUDED.spend_micros,
	video_starts           = EXCLUDED.video_starts,
	video_first_quartile   = EXCLUDED.video_first_quartile,
	video_midpoint         = EXCLUDED.video_midpoint,
	video_third_quartile   = EXCLUDED.video_third_quartile,
	video_completions      = EXCLUDED.video_completions,
	vast_errors            = EXCLUDED.vast_errors,
	engaged_views          = EXCLUDED.engaged_views,
	active_view_measurable = EXCLUDED.active_view_measurable,
	active_view_viewable   = EXCLUDED.active_view_viewable,
	gma_sdk                = EXCLUDED.gma_sdk,
	buyer_sdk              = EXCLUDED.buyer_sdk,
	import_batch_id        = EXCLUDED.import_batch_id,
	updated_at             = now()
RETURNING (xmax = 0) AS inserted`

// UpsertRows writes one batch. Rows are written independently, outside any
// transaction, so a single bad row is reported in the outcome and the rest
// of the batch still lands.
func (s *Store) UpsertRows(ctx context.Context, rows []*ingest.CanonicalRow) (ingest.BatchOutcome, error) {
	var out ingest.BatchOutcome
	for _, r := range rows {
		var inserted bool
		err := s.db.QueryRow(ctx, upsertRowSQL,
			r.RowKey, r.MetricDate, r.Hour, r.CreativeID, r.BillingID, r.CreativeSize,
			r.CreativeFormat, r.Country, r.Platform, r.Environment,
			r.AppID, r.AppName, r.PublisherID, r.PublisherName, r.PublisherDomain,
			r.DealID, r.DealName, r.TransactionType,
			r.Advertiser, r.BuyerAccountID, r.BuyerAccountName,
			r.ReachedQueries, r.Impressions, r.Clicks, r.SpendMicros,
			r.VideoStarts, r.VideoFirstQuartile, r.VideoMidpoint, r.VideoThirdQuartile,
			r.VideoCompletions, r.VastErrors, r.EngagedViews,
			r.ActiveViewMeasurable, r.ActiveViewViewable,
			r.GmaSDK, r.BuyerSDK, r.BatchID,
		).Scan(&inserted)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			out.Failed = append(out.Failed, ingest.RowFailure{RowKey: r.RowKey, Err: err})
			continue
		}
		if inserted {
			out.Inserted++
		} else {
			out.Updated++
		}
	}
	return out, nil
}

// DataSummary aggregates whatever is currently in the rows table.
type DataSummary struct {
	TotalRows           int64  `json:"totalRows"`
	UniqueDates         int64  `json:"uniqueDates"`
	UniqueCreatives     int64  `json:"uniqueCreatives"`
	UniqueBillingIDs    int64  `json:"uniqueBillingIds"`
	UniqueSizes         int64  `json:"uniqueSizes"`
	UniqueCountries     int64  `json:"uniqueCountries"`
	DateRangeStart      string `json:"dateRangeStart,omitempty"`
	DateRangeEnd        string `json:"dateRangeEnd,omitempty"`
	TotalReachedQueries int64  `json:"totalReachedQueries"`
	TotalImpressions    int64  `json:"totalImpressions"`
	TotalClicks         int64  `json:"totalClicks"`
	TotalSpendMicros    int64  `json:"totalSpendMicros"`
}

// Summary reports row counts, distinct dimension counts, the covered date
// range, and metric totals for the whole rows table.
func (s *Store) Summary(ctx context.Context) (*DataSummary, error) {
	const q = `
		SELECT
			COUNT(*),
			COUNT(DISTINCT metric_date),
			COUNT(DISTINCT creative_id),
			COUNT(DISTINCT billing_id),
			COUNT(DISTINCT creative_size),
			COUNT(DISTINCT country),
			COALESCE(to_char(MIN(metric_date), 'YYYY-MM-DD'), ''),
			COALESCE(to_char(MAX(metric_date), 'YYYY-MM-DD'), ''),
			COALESCE(SUM(reached_queries), 0),
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0),
			COALESCE(SUM(spend_micros), 0)
		FROM report_rows`

	var sum DataSummary
	err := s.db.QueryRow(ctx, q).Scan(
		&sum.TotalRows, &sum.UniqueDates, &sum.UniqueCreatives, &sum.UniqueBillingIDs,
		&sum.UniqueSizes, &sum.UniqueCountries,
		&sum.DateRangeStart, &sum.DateRangeEnd,
		&sum.TotalReachedQueries, &sum.TotalImpressions, &sum.TotalClicks, &sum.TotalSpendMicros,
	)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
