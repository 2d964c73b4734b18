package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "coworkspace/internal/errors"
	"coworkspace/internal/logging"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Message: message})
}

// writeError maps err to a status and a client-safe message. Server-side
// failures are logged with the request logger.
func writeError(w http.ResponseWriter, r *http.Request, fallback *slog.Logger, err error) {
	httpErr := apperrors.ToHTTP(err)
	resp := ErrorResponse{Message: httpErr.Message}

	var rejection *apperrors.PolicyRejection
	if errors.As(err, &rejection) {
		resp.Reason = rejection.Reason
	}
	if httpErr.Code >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), fallback).ErrorContext(r.Context(), "request failed", "error", err)
	}
	writeJSON(w, httpErr.Code, resp)
}
