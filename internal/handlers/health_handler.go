package handlers

import (
	"context"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// Pinger reports whether the process supervisor can be reached.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	supervisor Pinger
}

func NewHealthHandler(p Pinger) *HealthHandler {
	return &HealthHandler{supervisor: p}
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ReadyCheck opens a session to the supervisor and reports 503 when that
// fails.
func (h *HealthHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.supervisor.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unavailable",
			Timestamp: time.Now().Format(time.RFC3339),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
