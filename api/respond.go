package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/internal/requests"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message,omitempty"`
	Data       any                  `json:"data,omitempty"`
	Pagination *requests.Pagination `json:"pagination,omitempty"`
	Errors     []apperr.FieldError  `json:"errors,omitempty"`
	Error      string               `json:"error,omitempty"`
}

const (
	msgUnauthorized       = "Not authorized to access this route"
	msgInvalidCredentials = "Invalid credentials"
	msgNotFound           = "Request not found"
	msgServerError        = "Server error"
	msgInvalidBody        = "Invalid request body"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps err onto the error taxonomy. Unexpected errors are logged
// and their detail is only exposed when dev is set.
func writeError(w http.ResponseWriter, r *http.Request, err error, dev bool) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: ve.Error(), Errors: ve.Fields})
	case errors.Is(err, apperr.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, apperr.ErrUnauthorized):
		writeFailure(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, apperr.ErrNotFound):
		writeFailure(w, http.StatusNotFound, msgNotFound)
	default:
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		body := envelope{Success: false, Message: msgServerError}
		if dev {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}
