package store

import (
	"context"
	"fmt"
)

// ddl creates the three tables the pipeline owns. Statements are idempotent
// so startup can run them unconditionally.
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS report_rows (
		row_key              TEXT PRIMARY KEY,
		metric_date          DATE NOT NULL,
		hour                 SMALLINT,
		creative_id          TEXT NOT NULL,
		billing_id           TEXT NOT NULL,
		creative_size        TEXT NOT NULL,
		creative_format      TEXT,
		country              TEXT,
		platform             TEXT,
		environment          TEXT,
		app_id               TEXT,
		app_name             TEXT,
		publisher_id         TEXT,
		publisher_name       TEXT,
		publisher_domain     TEXT,
		deal_id              TEXT,
		deal_name            TEXT,
		transaction_type     TEXT,
		advertiser           TEXT,
		buyer_account_id     TEXT,
		buyer_account_name   TEXT,
		reached_queries      BIGINT NOT NULL,
		impressions          BIGINT NOT NULL,
		clicks               BIGINT,
		spend_micros         BIGINT,
		video_starts         BIGINT,
		video_first_quartile BIGINT,
		video_midpoint       BIGINT,
		video_third_quartile BIGINT,
		video_completions    BIGINT,
		vast_errors          BIGINT,
		engaged_views        BIGINT,
		active_view_measurable BIGINT,
		active_view_viewable BIGINT,
		gma_sdk              BOOLEAN NOT NULL DEFAULT FALSE,
		buyer_sdk            BOOLEAN NOT NULL DEFAULT FALSE,
		import_batch_id      TEXT NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_report_rows_date ON report_rows (metric_date)`,
	`CREATE INDEX IF NOT EXISTS idx_report_rows_creative ON report_rows (creative_id)`,
	`CREATE INDEX IF NOT EXISTS idx_report_rows_billing ON report_rows (billing_id)`,

	`CREATE TABLE IF NOT EXISTS import_batches (
		batch_id              TEXT PRIMARY KEY,
		source_name           TEXT NOT NULL,
		imported_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		status                TEXT NOT NULL,
		error_message         TEXT,
		rows_read             BIGINT NOT NULL DEFAULT 0,
		rows_imported         BIGINT NOT NULL DEFAULT 0,
		rows_skipped          BIGINT NOT NULL DEFAULT 0,
		rows_duplicate        BIGINT NOT NULL DEFAULT 0,
		date_range_start      DATE,
		date_range_end        DATE,
		unique_creatives      BIGINT NOT NULL DEFAULT 0,
		billing_ids           TEXT[],
		columns_imported      TEXT[],
		columns_missing       TEXT[],
		skip_examples         TEXT[],
		total_reached_queries BIGINT NOT NULL DEFAULT 0,
		total_impressions     BIGINT NOT NULL DEFAULT 0,
		total_spend_micros    BIGINT NOT NULL DEFAULT 0,
		anomaly_count         BIGINT NOT NULL DEFAULT 0,
		file_size_bytes       BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_batches_time ON import_batches (imported_at DESC)`,

	`CREATE TABLE IF NOT EXISTS import_anomalies (
		id           BIGSERIAL PRIMARY KEY,
		batch_id     TEXT NOT NULL,
		row_number   INTEGER,
		anomaly_type TEXT NOT NULL,
		creative_id  TEXT,
		app_id       TEXT,
		app_name     TEXT,
		details      JSONB,
		detected_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_anomalies_batch ON import_anomalies (batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_import_anomalies_app ON import_anomalies (app_id)`,
	`CREATE INDEX IF NOT EXISTS idx_import_anomalies_type ON import_anomalies (anomaly_type)`,
}

// EnsureSchema creates any missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
