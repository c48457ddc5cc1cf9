package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"procdeck/internal/api"
	"procdeck/internal/config"
	"procdeck/internal/logger"
	"procdeck/internal/mcptools"
	"procdeck/internal/service"
	"procdeck/internal/supervisor"
	"procdeck/internal/telemetry"
)

// set at build time
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "procdeck",
		Short:         "Status and control plane for PM2 managed processes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "mcp",
		Short: "Serve the process tools over MCP on stdin/stdout",
		RunE:  runMCP,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type services struct {
	sessions *supervisor.Manager
	procs    *service.ProcessService
	logs     *service.LogService
}

func newServices(cfg *config.Config, log *slog.Logger) (*services, error) {
	dialer, err := supervisor.NewDialer(supervisor.DialerConfig{
		Transport: cfg.Supervisor.Transport,
		Binary:    cfg.Supervisor.Binary,
		Home:      cfg.Supervisor.Home,
		Socket:    cfg.Supervisor.Socket,
	})
	if err != nil {
		return nil, err
	}

	sessions := supervisor.NewManager(dialer,
		supervisor.WithDialTimeout(cfg.Supervisor.DialTimeout),
		supervisor.WithLogger(log),
	)
	procs := service.NewProcessService(sessions, log)
	logs := service.NewLogService(procs,
		service.WithDefaultLines(cfg.Logs.DefaultLines),
		service.WithLockTimeout(cfg.Logs.LockTimeout),
	)

	return &services{sessions: sessions, procs: procs, logs: logs}, nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	slog.SetDefault(log)

	svc, err := newServices(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if err := supervisor.WaitReady(ctx, svc.sessions, cfg.Supervisor.ReadyMaxElapsed); err != nil {
		log.Warn("Process supervisor not reachable, serving anyway", "transport", cfg.Supervisor.Transport, "error", err)
	} else {
		log.Info("Process supervisor reachable", "transport", cfg.Supervisor.Transport)
	}

	router := api.NewRouter(svc.sessions, svc.procs, svc.logs,
		telemetry.NewHostCollector(cfg.Telemetry.CPUSample),
		api.Options{
			APIPrefix:      cfg.Server.APIPrefix,
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         log,
		},
	)

	// WriteTimeout sits above the request timeout so handlers can report it
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("Starting procdeck server", "address", cfg.Server.Address, "prefix", cfg.Server.APIPrefix, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	// stdout carries the protocol
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level)
	slog.SetDefault(log)

	svc, err := newServices(cfg, log)
	if err != nil {
		return err
	}

	server := mcptools.NewServer(mcptools.New(svc.procs, svc.logs), version)

	log.Info("Serving MCP on stdio", "transport", cfg.Supervisor.Transport)
	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
