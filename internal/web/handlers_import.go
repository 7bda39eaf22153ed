package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rtbcat/catscan-sub001/internal/ingest"
	"github.com/rtbcat/catscan-sub001/internal/logging"
	"github.com/rtbcat/catscan-sub001/internal/source"
)

// validateResponse wraps a header validation report with remediation text
// when the file is rejected.
type validateResponse struct {
	Report      *ingest.ValidationReport `json:"report"`
	Remediation string                   `json:"remediation,omitempty"`
}

// handleValidate checks a report header against the expected columns
// without writing anything. Accepts either a multipart "file" field or a
// raw CSV body.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, _, ok := s.openUpload(w, r)
	if !ok {
		return
	}
	defer body.Close()

	report := s.importer.Validate(body)
	resp := validateResponse{Report: report}
	if !report.IsValid {
		resp.Remediation = report.Remediation()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// importRequest asks the server to pull a report from a path or s3:// URL
// instead of uploading it inline.
type importRequest struct {
	Location string `json:"location"`
}

// handleImport runs the full import pipeline. The report arrives either as
// a multipart "file" field or as a JSON body naming a location the server
// can reach (local path or s3:// URL).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, name, ok := s.openUpload(w, r)
	if !ok {
		return
	}
	defer body.Close()

	log := logging.WithFields(r.Context(), "source", name)

	result, err := s.importer.Import(r.Context(), body, name)
	if err != nil {
		var rejected *ingest.RejectedError
		if errors.As(err, &rejected) {
			writeJSON(w, r, http.StatusUnprocessableEntity, validateResponse{
				Report:      rejected.Report,
				Remediation: rejected.Report.Remediation(),
			})
			return
		}
		// The failed ledger entry was written; return it alongside the error.
		log.Error("import failed", "error", err)
		writeJSON(w, r, http.StatusInternalServerError, result)
		return
	}

	log.Info("import accepted",
		"batch_id", result.BatchID,
		"rows_imported", result.RowsImported,
		"rows_skipped", result.RowsSkipped,
	)
	writeJSON(w, r, http.StatusOK, result)
}

// openUpload resolves the request into a readable report stream and its
// display name. On failure it writes the error response and returns ok=false.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(maxSize); err != nil {
			respondError(w, r, http.StatusBadRequest, "file too large or invalid form")
			return nil, "", false
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "no file provided")
			return nil, "", false
		}
		return file, header.Filename, true

	case strings.HasPrefix(contentType, "application/json"):
		var req importRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.Location == "" {
			respondError(w, r, http.StatusBadRequest, "body must be {\"location\": \"<path or s3:// URL>\"}")
			return nil, "", false
		}
		in, err := source.Open(r.Context(), req.Location)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return nil, "", false
		}
		if in.Size > maxSize {
			in.Close()
			respondError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("source is %d bytes, limit is %d", in.Size, maxSize))
			return nil, "", false
		}
		return in, in.Name, true

	default:
		// Raw CSV body; name comes from the query string if given.
		name := r.URL.Query().Get("source")
		if name == "" {
			name = "upload.csv"
		}
		return http.MaxBytesReader(w, r.Body, maxSize), name, true
	}
}
