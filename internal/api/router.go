package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procdeck/internal/handlers"
	"procdeck/internal/middleware"
	"procdeck/internal/service"
	"procdeck/internal/supervisor"
	"procdeck/internal/telemetry"
)

type Router struct {
	*mux.Router
}

type Options struct {
	// APIPrefix is mounted in front of every route, e.g. /serverApp/api
	APIPrefix      string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(
	sessions *supervisor.Manager,
	procs *service.ProcessService,
	logs *service.LogService,
	collector telemetry.Collector,
	opts Options,
) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := mux.NewRouter()

	procHandler := handlers.NewProcessHandler(procs, logs, opts.Logger)
	statusHandler := handlers.NewStatusHandler(collector)
	healthHandler := handlers.NewHealthHandler(sessions)

	base := r
	if opts.APIPrefix != "" {
		base = r.PathPrefix(opts.APIPrefix).Subrouter()
	}

	// Long-lived streams are registered ahead of the timeout-bound routes
	base.HandleFunc("/pm2/logs/stream", procHandler.StreamLog).Methods(http.MethodGet)

	api := base.NewRoute().Subrouter()
	if opts.RequestTimeout > 0 {
		api.Use(middleware.Timeout(opts.RequestTimeout))
	}

	api.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	api.HandleFunc("/ready", healthHandler.ReadyCheck).Methods(http.MethodGet)
	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api.HandleFunc("/status", statusHandler.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/processes", statusHandler.GetProcesses).Methods(http.MethodGet)

	api.HandleFunc("/pm2/list", procHandler.ListProcesses).Methods(http.MethodGet)
	api.HandleFunc("/pm2/restart", procHandler.RestartProcess).Methods(http.MethodPost)
	api.HandleFunc("/pm2/logs", procHandler.ReadLog).Methods(http.MethodGet)
	api.HandleFunc("/pm2/clear-log", procHandler.ClearLog).Methods(http.MethodPost)

	// Apply middleware
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Metrics)

	return &Router{Router: r}
}
