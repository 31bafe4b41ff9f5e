package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/budgetanalyzer/transactions/internal/buildinfo"
	"github.com/budgetanalyzer/transactions/internal/importer"
	"github.com/budgetanalyzer/transactions/internal/logging"
	"github.com/budgetanalyzer/transactions/internal/model"
	"github.com/budgetanalyzer/transactions/internal/transactions"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	keys := s.deps.Formats.Keys()
	out := make([]formatResponse, 0, len(keys))
	for _, k := range keys {
		c, err := s.deps.Formats.Lookup(k)
		if err != nil {
			respondError(w, r, err)
			return
		}
		out = append(out, toFormatResponse(k, c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleImport accepts multipart fields "format", optional "accountId" and
// one or more "files".
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", errBadRequest, tooBig.Limit))
			return
		}
		respondError(w, r, fmt.Errorf("%w: reading multipart form: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	format := r.FormValue("format")
	if format == "" {
		respondError(w, r, fmt.Errorf("%w: format is required", errBadRequest))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, fmt.Errorf("%w: at least one file is required", errBadRequest))
		return
	}

	files := make([]importer.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(w, r, fmt.Errorf("opening upload %s: %w", fh.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, r, fmt.Errorf("reading upload %s: %w", fh.Filename, err))
			return
		}
		files = append(files, importer.File{Name: fh.Filename, Content: content})
	}

	res, err := s.deps.Imports.Import(r.Context(), importer.Request{
		Format:    format,
		AccountID: r.FormValue("accountId"),
		Files:     files,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import complete",
		"batch_id", res.BatchID,
		"format", format,
		"transactions", len(res.Transactions),
	)
	writeJSON(w, http.StatusOK, importResponse{
		BatchID:      res.BatchID.String(),
		Files:        res.Files,
		Skipped:      res.Skipped,
		Transactions: toResponses(res.Transactions),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	txns, ok := s.searchQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponses(txns))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	txns, ok := s.searchQuery(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := transactions.WriteCSV(w, txns); err != nil {
		// Headers are already sent.
		logging.FromContext(r.Context()).Error("writing export", "error", err)
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	txns, ok := s.searchQuery(w, r)
	if !ok {
		return
	}
	totals := transactions.MonthlyDebitTotals(txns)
	out := summaryResponse{
		MonthlyDebitTotals:  make(map[string]json.Number, len(totals)),
		AverageMonthlyTotal: json.Number(transactions.AverageMonthlyTotal(totals).StringFixed(2)),
	}
	for month, v := range totals {
		out.MonthlyDebitTotals[month] = json.Number(v.StringFixed(2))
	}
	writeJSON(w, http.StatusOK, out)
}

// searchQuery runs a search built from query parameters, writing the error
// response itself on failure.
func (s *Server) searchQuery(w http.ResponseWriter, r *http.Request) ([]model.Transaction, bool) {
	req, err := searchFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	f, err := req.filter()
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	txns, err := s.deps.Transactions.Search(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	return txns, true
}

func (s *Server) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := req.filter()
	if err != nil {
		respondError(w, r, err)
		return
	}
	txns, err := s.deps.Transactions.Search(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(txns))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.deps.Transactions.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, notFound(err, id))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.deps.Transactions.Update(r.Context(), id, transactions.UpdateRequest{
		Description: req.Description,
		AccountID:   req.AccountID,
	})
	if err != nil {
		respondError(w, r, notFound(err, id))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Transactions.Delete(r.Context(), id, actorFrom(r.Context())); err != nil {
		respondError(w, r, notFound(err, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.deps.Transactions.BulkDelete(r.Context(), req.IDs, actorFrom(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{
		DeletedCount: res.DeletedCount,
		NotFoundIDs:  res.NotFoundIDs,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: transaction id must be an integer, got %q", errBadRequest, raw))
		return 0, false
	}
	return id, true
}

// notFound gives a missing-row error a message naming the id.
func notFound(err error, id int64) error {
	if errors.Is(err, transactions.ErrNotFound) {
		return fmt.Errorf("%w with id: %d", err, id)
	}
	return err
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return false
	}
	return true
}
