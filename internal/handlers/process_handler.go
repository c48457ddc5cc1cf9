package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"procdeck/internal/models"
	"procdeck/internal/service"
)

type ProcessHandler struct {
	procs  *service.ProcessService
	logs   *service.LogService
	logger *slog.Logger
}

func NewProcessHandler(procs *service.ProcessService, logs *service.LogService, logger *slog.Logger) *ProcessHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessHandler{procs: procs, logs: logs, logger: logger}
}

type RestartRequest struct {
	Name string `json:"name"`
}

type RestartResponse struct {
	Message string `json:"message"`
	Proc    any    `json:"proc"`
}

type ClearLogRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type LogResponse struct {
	Log string `json:"log"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *ProcessHandler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := h.procs.ListProcesses(r.Context())
	if err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to get processes")
		return
	}

	descriptors := wantDescriptors(r)
	views := make([]any, 0, len(processes))
	for _, p := range processes {
		views = append(views, processView(p, descriptors))
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *ProcessHandler) RestartProcess(w http.ResponseWriter, r *http.Request) {
	var req RestartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	proc, err := h.procs.RestartProcess(r.Context(), req.Name)
	if err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to restart process")
		return
	}

	writeJSON(w, http.StatusOK, RestartResponse{
		Message: "Process " + req.Name + " restarted successfully",
		Proc:    processView(proc, wantDescriptors(r)),
	})
}

func (h *ProcessHandler) ReadLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, ok := models.ParseStreamKind(q.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", service.ErrInvalidStream, q.Get("type")), "Log type must be out or err")
		return
	}

	// a missing or malformed count falls back to the service default
	lines, _ := strconv.Atoi(q.Get("lines"))

	content, err := h.logs.ReadLogTail(r.Context(), q.Get("name"), kind, lines)
	if err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to read log")
		return
	}

	writeJSON(w, http.StatusOK, LogResponse{Log: content})
}

func (h *ProcessHandler) ClearLog(w http.ResponseWriter, r *http.Request) {
	var req ClearLogRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	kind, ok := models.ParseStreamKind(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", service.ErrInvalidStream, req.Type), "Log type must be out or err")
		return
	}

	if err := h.logs.ClearLog(r.Context(), req.Name, kind); err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to clear log")
		return
	}

	h.logger.InfoContext(r.Context(), "Log cleared", "name", req.Name, "stream", kind)
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "Log " + string(kind) + " of " + req.Name + " cleared successfully",
	})
}

// StreamLog sends lines appended to a process log as server-sent events
// until the client goes away.
func (h *ProcessHandler) StreamLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")

	kind, ok := models.ParseStreamKind(q.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", service.ErrInvalidStream, q.Get("type")), "Log type must be out or err")
		return
	}

	// resolve up front so lookup failures are plain JSON errors
	if _, err := h.logs.ResolveLogPath(r.Context(), name, kind); err != nil {
		writeError(w, statusFor(r.Context(), err), err, "Failed to stream log")
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	ctx := r.Context()
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		done <- h.logs.Follow(ctx, name, kind, lines)
	}()

	for {
		select {
		case line := <-lines:
			writeEvent(w, "", line)
			if err := rc.Flush(); err != nil {
				return
			}
		case err := <-done:
			if err != nil {
				h.logger.WarnContext(ctx, "Log stream ended", "name", name, "stream", kind, "error", err)
				writeEvent(w, "error", err.Error())
				_ = rc.Flush()
			}
			return
		}
	}
}

// wantDescriptors reports whether the caller asked for normalized process
// descriptors with ?format=descriptor instead of PM2's own records.
func wantDescriptors(r *http.Request) bool {
	return r.URL.Query().Get("format") == "descriptor"
}

// processView renders a process as PM2 reported it (pm_id, pm2_env, monit,
// ...), or as a normalized descriptor when asked to.
func processView(p models.ProcessDescriptor, descriptor bool) any {
	if descriptor || p.Raw == nil {
		return p
	}
	return p.Raw
}

// writeEvent writes one server-sent event. Each CR, LF or CRLF separated
// piece of data gets its own data field so it cannot end the event early.
func writeEvent(w io.Writer, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, piece := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", piece)
	}
	fmt.Fprint(w, "\n")
}

func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
