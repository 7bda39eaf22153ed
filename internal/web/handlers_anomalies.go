package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleBatchAnomalies returns the anomalies recorded for one import batch.
func (s *Server) handleBatchAnomalies(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	limit := parseIntParam(r, "limit", 100)
	if limit > 1000 {
		limit = 1000
	}

	records, err := s.store.AnomaliesByBatch(r.Context(), batchID, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load anomalies")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"batch_id":  batchID,
		"anomalies": records,
	})
}

// handleFlaggedApps returns the apps with the most recorded anomalies,
// across all imports.
func (s *Server) handleFlaggedApps(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)
	if limit > 200 {
		limit = 200
	}

	apps, err := s.store.TopFlaggedApps(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load flagged apps")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"apps": apps})
}

// handleAnomalySummary returns anomaly counts grouped by type.
func (s *Server) handleAnomalySummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.AnomalySummary(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load anomaly summary")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"by_type": counts})
}
