package store

import (
	"context"
	"time"

	"github.com/rtbcat/catscan-sub001/internal/ingest"
)

// AnomalyRecord is a stored anomaly as seen by the review surface.
type AnomalyRecord struct {
	ID         int64          `json:"id"`
	BatchID    string         `json:"batchId"`
	RowNumber  *int32         `json:"rowNumber,omitempty"`
	Type       string         `json:"type"`
	CreativeID *string        `json:"creativeId,omitempty"`
	AppID      *string        `json:"appId,omitempty"`
	AppName    *string        `json:"appName,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	DetectedAt time.Time      `json:"detectedAt"`
}

// SaveAnomalies stores the batch's anomaly records. A failed insert is
// skipped, not escalated: anomalies are review metadata and must not undo an
// import whose rows already committed.
func (s *Store) SaveAnomalies(ctx context.Context, batchID string, anomalies []ingest.Anomaly) (int, error) {
	saved := 0
	for _, a := range anomalies {
		_, err := s.db.Exec(ctx, `
			INSERT INTO import_anomalies
				(batch_id, row_number, anomaly_type, creative_id, app_id, app_name, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			batchID, a.RowNumber, a.Type, a.CreativeID, a.AppID, a.AppName, a.Details,
		)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			continue
		}
		saved++
	}
	return saved, nil
}

// AnomaliesByBatch lists the anomalies detected during one import.
func (s *Store) AnomaliesByBatch(ctx context.Context, batchID string, limit int) ([]*AnomalyRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, batch_id, row_number, anomaly_type, creative_id, app_id, app_name, details, detected_at
		FROM import_anomalies
		WHERE batch_id = $1
		ORDER BY id
		LIMIT $2`, batchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AnomalyRecord
	for rows.Next() {
		var a AnomalyRecord
		if err := rows.Scan(&a.ID, &a.BatchID, &a.RowNumber, &a.Type,
			&a.CreativeID, &a.AppID, &a.AppName, &a.Details, &a.DetectedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// FlaggedApp is an app ranked by how often it trips fraud heuristics.
type FlaggedApp struct {
	AppID        string   `json:"appId"`
	AppName      *string  `json:"appName,omitempty"`
	AnomalyCount int64    `json:"anomalyCount"`
	Types        []string `json:"types"`
}

// TopFlaggedApps ranks apps by anomaly count for the review surface.
func (s *Store) TopFlaggedApps(ctx context.Context, limit int) ([]*FlaggedApp, error) {
	rows, err := s.db.Query(ctx, `
		SELECT app_id, MAX(app_name), COUNT(*), array_agg(DISTINCT anomaly_type)
		FROM import_anomalies
		WHERE app_id IS NOT NULL
		GROUP BY app_id
		ORDER BY COUNT(*) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FlaggedApp
	for rows.Next() {
		var a FlaggedApp
		if err := rows.Scan(&a.AppID, &a.AppName, &a.AnomalyCount, &a.Types); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// AnomalySummary counts stored anomalies by type.
func (s *Store) AnomalySummary(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT anomaly_type, COUNT(*)
		FROM import_anomalies
		GROUP BY anomaly_type
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		out[typ] = n
	}
	return out, rows.Err()
}
