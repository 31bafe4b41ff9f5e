package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/budgetanalyzer/transactions/internal/logging"
	"github.com/budgetanalyzer/transactions/internal/model"
	"github.com/budgetanalyzer/transactions/internal/transactions"
)

var (
	errBadRequest       = errors.New("bad request")
	errNotFound         = errors.New("not found")
	errUnauthorized     = errors.New("unauthorized")
	errMethodNotAllowed = errors.New("method not allowed")
)

// Problem is an RFC 7807 style error body.
type Problem struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Status    int       `json:"status"`
	Detail    string    `json:"detail"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
}

var importTitles = map[model.ErrorKind]string{
	model.KindFormatNotSupported: "CSV format not supported",
	model.KindParsing:            "CSV parsing error",
	model.KindDateTooOld:         "Transaction date too old",
	model.KindDateTooFarInFuture: "Transaction date too far in future",
}

// problemFor maps an error to its response. Unrecognized errors become a
// generic 500 so internals never reach the client.
func problemFor(err error) Problem {
	if ie, ok := model.AsImportError(err); ok {
		return Problem{
			Type:   kindSlug(ie.Kind),
			Title:  importTitles[ie.Kind],
			Status: http.StatusBadRequest,
			Detail: ie.Error(),
		}
	}

	switch {
	case errors.Is(err, transactions.ErrNotFound), errors.Is(err, errNotFound):
		return Problem{Type: "not-found", Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, transactions.ErrInvalid), errors.Is(err, errBadRequest):
		return Problem{Type: "bad-request", Title: "Bad Request", Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, errUnauthorized):
		return Problem{Type: "unauthorized", Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: err.Error()}
	case errors.Is(err, errMethodNotAllowed):
		return Problem{Type: "method-not-allowed", Title: "Method Not Allowed", Status: http.StatusMethodNotAllowed, Detail: err.Error()}
	}
	return Problem{
		Type:   "internal-error",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: "An unexpected error occurred",
	}
}

// kindSlug renders CSV_PARSING_ERROR as csv-parsing-error.
func kindSlug(k model.ErrorKind) string {
	return strings.ReplaceAll(strings.ToLower(string(k)), "_", "-")
}

// respondError logs err and writes it as a problem document.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	p.Instance = r.URL.Path
	p.Timestamp = time.Now().UTC()

	logger := logging.FromContext(r.Context())
	if p.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
	} else {
		logger.Warn("request rejected", "path", r.URL.Path, "method", r.Method, "status", p.Status, "error", err)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
