package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"procdeck/internal/service"
	"procdeck/internal/supervisor"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Error encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Message: message,
	})
}

// statusFor maps an operation error to the HTTP status reported to clients.
// Only a canceled supervisor operation or an ended request is a 504; a
// deadline inside a classified failure (lock wait, dial timeout) is not.
func statusFor(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrInvalidStream):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProcessNotFound),
		errors.Is(err, service.ErrLogPathUnavailable):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrCanceled),
		ctx.Err() != nil:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
