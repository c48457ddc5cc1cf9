package handlers

import (
	"net/http"

	"procdeck/internal/telemetry"
)

type StatusHandler struct {
	collector telemetry.Collector
}

func NewStatusHandler(c telemetry.Collector) *StatusHandler {
	return &StatusHandler{collector: c}
}

func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.collector.HostStatus(r.Context())
	if err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to get status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *StatusHandler) GetProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := h.collector.HostProcesses(r.Context())
	if err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to get processes")
		return
	}

	writeJSON(w, http.StatusOK, processes)
}
