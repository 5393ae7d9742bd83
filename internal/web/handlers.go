package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linkforge/bulkimport/internal/core"
	"github.com/linkforge/bulkimport/internal/history"
	"github.com/linkforge/bulkimport/internal/logging"
)

// previewResponse is the body of a successful preview call.
type previewResponse struct {
	AttemptID   string                   `json:"attemptId"`
	FileName    string                   `json:"fileName"`
	TotalRows   int                      `json:"totalRows"`
	ValidRows   int                      `json:"validRows"`
	Outcomes    []core.ValidationOutcome `json:"outcomes"`
	Submittable bool                     `json:"submittable"`
}

// importResponse is the body of a finished import.
type importResponse struct {
	AttemptID  string            `json:"attemptId"`
	FileName   string            `json:"fileName"`
	TotalRows  int               `json:"totalRows"`
	ValidRows  int               `json:"validRows"`
	Summary    core.Summary      `json:"summary"`
	Rows       []core.RowOutcome `json:"rows"`
	DurationMS int64             `json:"durationMs"`
}

// readImportFile extracts the uploaded CSV from the multipart "file" field,
// enforcing the configured size limit.
func (s *Server) readImportFile(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if r.ContentLength > s.cfg.Upload.MaxFileSize {
		return nil, "", fmt.Errorf("file too large: limit is %d bytes", s.cfg.Upload.MaxFileSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", fmt.Errorf("file too large: limit is %d bytes", maxErr.Limit)
		}
		return nil, "", &core.ParseError{Reason: "missing file field"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", fmt.Errorf("file too large: limit is %d bytes", maxErr.Limit)
		}
		return nil, "", &core.ParseError{Reason: "unreadable file: " + err.Error()}
	}

	return data, header.Filename, nil
}

// handlePreview parses and validates a file without submitting anything.
// The previewed attempt becomes the current attempt, so a later upload of a
// different file supersedes it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readImportFile(w, r)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	attempt, err := s.service.Begin(fileName, data)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info("import previewed",
		"workspace_id", chi.URLParam(r, "workspaceID"),
		"attempt_id", attempt.ID,
		"file", fileName,
		"rows", len(attempt.Records),
		"valid", attempt.ValidCount(),
	)

	respondJSON(w, http.StatusOK, previewResponse{
		AttemptID:   attempt.ID,
		FileName:    attempt.FileName,
		TotalRows:   len(attempt.Records),
		ValidRows:   attempt.ValidCount(),
		Outcomes:    attempt.Outcomes,
		Submittable: attempt.ValidCount() > 0,
	})
}

// handleImport runs the whole pipeline for one file: parse, validate, submit
// the valid rows as a single batch, and reconcile the per-row results.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	data, fileName, err := s.readImportFile(w, r)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logger := logging.WithFields(r.Context(),
		"workspace_id", workspaceID,
		"file", fileName,
	)

	attempt, err := s.service.Run(r.Context(), workspaceID, fileName, data)
	if err != nil {
		logger.Warn("import failed", "error", err)
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logger.Info("import finished",
		"attempt_id", attempt.ID,
		"rows", len(attempt.Records),
		"success", attempt.Summary.Success,
		"failed", attempt.Summary.Failed,
		"skipped", attempt.Summary.Skipped,
		"duration_ms", attempt.Duration.Milliseconds(),
	)
	s.recordHistory(r, attempt)

	respondJSON(w, http.StatusOK, importResponse{
		AttemptID:  attempt.ID,
		FileName:   attempt.FileName,
		TotalRows:  len(attempt.Records),
		ValidRows:  attempt.ValidCount(),
		Summary:    attempt.Summary,
		Rows:       attempt.RowOutcomes,
		DurationMS: attempt.Duration.Milliseconds(),
	})
}

// recordHistory persists the finished attempt when a history store exists.
// History is best effort: a write failure is logged, never surfaced.
func (s *Server) recordHistory(r *http.Request, attempt *core.Attempt) {
	if s.history == nil {
		return
	}

	entry := history.Entry{
		ID:          attempt.ID,
		WorkspaceID: attempt.WorkspaceID,
		FileName:    attempt.FileName,
		TotalRows:   len(attempt.Records),
		ValidRows:   attempt.ValidCount(),
		Success:     attempt.Summary.Success,
		Failed:      attempt.Summary.Failed,
		Skipped:     attempt.Summary.Skipped,
		Duration:    attempt.Duration,
	}
	if err := s.history.Record(r.Context(), entry); err != nil {
		logging.FromContext(r.Context()).Error("history write failed",
			"attempt_id", attempt.ID,
			"error", err,
		)
	}
}

// handleExport streams the reconciled outcomes of a finished attempt as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")

	attempt, ok := s.service.Get(attemptID)
	if !ok {
		s.respondError(w, r, &core.ParseError{Reason: "unknown attempt " + attemptID}, http.StatusNotFound)
		return
	}
	if attempt.Phase != core.PhaseReconciled {
		s.respondError(w, r,
			fmt.Errorf("attempt %s has no results yet (phase %s)", attemptID, attempt.Phase),
			http.StatusConflict)
		return
	}

	csvData := core.ExportOutcomes(attempt.RowOutcomes)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="import-results.csv"`)
	w.Write(csvData)
}

// handleHistory returns the most recent finished imports.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondJSON(w, http.StatusOK, []history.Entry{})
		return
	}

	entries, err := s.history.Recent(r.Context(), 0)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
