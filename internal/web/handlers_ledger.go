package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rtbcat/catscan-sub001/internal/store"
)

// handleListImports returns the import ledger, newest first.
// Supports limit (default 50, max 500) and offset query parameters.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := parseIntParam(r, "offset", 0)

	entries, err := s.store.ListImports(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to list imports")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"imports": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetImport returns the ledger entry for one batch.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	entry, err := s.store.GetImport(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, store.ErrBatchNotFound) {
			respondError(w, r, http.StatusNotFound, "unknown batch id")
			return
		}
		respondError(w, r, http.StatusInternalServerError, "failed to load import")
		return
	}

	writeJSON(w, r, http.StatusOK, entry)
}

// parseIntParam parses a non-negative integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
