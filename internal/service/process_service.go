package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"procdeck/internal/models"
	"procdeck/internal/supervisor"
)

// ProcessService is the process directory and the restart control path.
// It keeps no state between calls: every read is a fresh supervisor round trip.
type ProcessService struct {
	sessions *supervisor.Manager
	logger   *slog.Logger
}

func NewProcessService(sessions *supervisor.Manager, logger *slog.Logger) *ProcessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessService{
		sessions: sessions,
		logger:   logger,
	}
}

// ListProcesses returns every managed process in supervisor order. Records
// that fail validation are logged and left out.
func (ps *ProcessService) ListProcesses(ctx context.Context) ([]models.ProcessDescriptor, error) {
	records, err := supervisor.WithSession(ctx, ps.sessions, "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	if err != nil {
		return nil, err
	}

	return ps.decodeAll(ctx, records), nil
}

// FindProcessByName returns the first process whose name matches exactly.
// The boolean is false when no process matches; that is not an error.
func (ps *ProcessService) FindProcessByName(ctx context.Context, name string) (models.ProcessDescriptor, bool, error) {
	processes, err := ps.ListProcesses(ctx)
	if err != nil {
		return models.ProcessDescriptor{}, false, err
	}

	for _, p := range processes {
		if p.Name == name {
			return p, true, nil
		}
	}

	return models.ProcessDescriptor{}, false, nil
}

// RestartProcess restarts by name or id and returns the descriptor the
// supervisor reports right after the restart. The process may still be
// launching at that point.
func (ps *ProcessService) RestartProcess(ctx context.Context, name string) (models.ProcessDescriptor, error) {
	if name == "" {
		return models.ProcessDescriptor{}, ErrNameRequired
	}

	records, err := supervisor.WithSession(ctx, ps.sessions, "restart",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.Restart(ctx, name)
		})
	if err != nil {
		if errors.Is(err, supervisor.ErrNotFound) {
			return models.ProcessDescriptor{}, fmt.Errorf("%w: %q: %w", ErrProcessNotFound, name, err)
		}
		return models.ProcessDescriptor{}, err
	}

	for _, p := range ps.decodeAll(ctx, records) {
		if supervisor.Matches(p, name) {
			ps.logger.InfoContext(ctx, "Process restarted", "name", p.Name, "id", p.ID, "restarts", p.RestartCount)
			return p, nil
		}
	}

	return models.ProcessDescriptor{}, fmt.Errorf("%w: no record returned for %q", supervisor.ErrRestart, name)
}

func (ps *ProcessService) decodeAll(ctx context.Context, records []supervisor.Record) []models.ProcessDescriptor {
	processes := make([]models.ProcessDescriptor, 0, len(records))
	for i, r := range records {
		p, err := supervisor.Decode(r)
		if err != nil {
			ps.logger.WarnContext(ctx, "Skipping malformed supervisor record", "index", i, "error", err)
			continue
		}
		processes = append(processes, p)
	}
	return processes
}
