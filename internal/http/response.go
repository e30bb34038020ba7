package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/IvaDonGon/TusGastos/internal/core"
	applog "github.com/IvaDonGon/TusGastos/internal/log"
)

const maxBodyBytes = 1 << 20

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: msg}})
}

// writeServiceError maps a service error onto a status code. Internal
// details are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, core.ErrNotPending), errors.Is(err, core.ErrOccurrenceExists),
		errors.Is(err, core.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case core.IsStorage(err):
		applog.FromContext(ctx).ErrorContext(ctx, "Storage failure", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage is unavailable, try again later")
	default:
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields. An empty
// body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}
