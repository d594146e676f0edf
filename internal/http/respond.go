package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/wire"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, wire.ErrorResponse{Error: code, ErrorDescription: description})
}

// writeError maps err onto a status code. Details of internal failures are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", "Record not found")
	case errors.Is(err, core.ErrAuth):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Internal error")
	}
}

// decodeJSON reads at most maxBodyBytes of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", core.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON: %v", core.ErrValidation, err)
	}
	return nil
}

// periodParam reads the {year}/{month} path parameters.
func periodParam(r *http.Request) (core.Period, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, chi.URLParam(r, "year"))
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return core.Period{}, fmt.Errorf("%w: month %q", core.ErrInvalidPeriod, chi.URLParam(r, "month"))
	}
	return core.NewPeriod(year, month)
}
