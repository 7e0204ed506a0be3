package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/watanabekazunori/tonarino/internal/competitor"
	"github.com/watanabekazunori/tonarino/internal/report"
	"github.com/watanabekazunori/tonarino/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, competitor.ErrInvalidInput), errors.Is(err, report.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// replaced with fallback.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, err.Error())
}
