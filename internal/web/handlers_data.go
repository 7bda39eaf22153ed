package web

import (
	"net/http"
)

// handleDataSummary returns aggregate statistics over all imported rows.
func (s *Server) handleDataSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load summary")
		return
	}

	writeJSON(w, r, http.StatusOK, summary)
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
