// Package supervisortest provides an in-memory supervisor for tests.
package supervisortest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"procdeck/internal/supervisor"
)

// Process is the fake supervisor's view of one managed process.
type Process struct {
	ID           int
	Name         string
	Pid          int
	Status       string
	RestartCount int
	CPU          float64
	Memory       int64
	OutLogPath   string
	ErrLogPath   string
}

// Record renders the process in the PM2 jlist shape.
func (p Process) Record() supervisor.Record {
	return supervisor.Record{
		"pm_id": float64(p.ID),
		"name":  p.Name,
		"pid":   float64(p.Pid),
		"monit": map[string]any{
			"memory": float64(p.Memory),
			"cpu":    p.CPU,
		},
		"pm2_env": map[string]any{
			"status":          p.Status,
			"restart_time":    float64(p.RestartCount),
			"pm_out_log_path": p.OutLogPath,
			"pm_err_log_path": p.ErrLogPath,
		},
	}
}

// Supervisor is a Dialer whose sessions operate on an in-memory process table.
// It counts sessions so tests can assert every one was closed exactly once.
type Supervisor struct {
	mu    sync.Mutex
	procs []Process
	extra []supervisor.Record

	// DialErr, ListErr and RestartErr force failures at each stage.
	DialErr    error
	ListErr    error
	RestartErr error

	opened      atomic.Int64
	closed      atomic.Int64
	doubleClose atomic.Int64
}

func New(procs ...Process) *Supervisor {
	return &Supervisor{procs: procs}
}

// AddRawRecord appends a record that is returned verbatim by List, for
// exercising malformed input.
func (s *Supervisor) AddRawRecord(r supervisor.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, r)
}

// Process returns a copy of the named process.
func (s *Supervisor) Process(name string) (Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.procs {
		if p.Name == name {
			return p, true
		}
	}
	return Process{}, false
}

// Opened is the number of sessions dialled so far.
func (s *Supervisor) Opened() int64 { return s.opened.Load() }

// Closed is the number of sessions closed so far.
func (s *Supervisor) Closed() int64 { return s.closed.Load() }

// DoubleClosed counts Close calls on an already closed session.
func (s *Supervisor) DoubleClosed() int64 { return s.doubleClose.Load() }

func (s *Supervisor) Dial(ctx context.Context) (supervisor.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.DialErr != nil {
		return nil, s.DialErr
	}
	s.opened.Add(1)
	return &session{sup: s}, nil
}

type session struct {
	sup    *Supervisor
	closed atomic.Bool
}

func (c *session) List(ctx context.Context) ([]supervisor.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.sup.ListErr != nil {
		return nil, c.sup.ListErr
	}

	c.sup.mu.Lock()
	defer c.sup.mu.Unlock()

	records := make([]supervisor.Record, 0, len(c.sup.procs)+len(c.sup.extra))
	for _, p := range c.sup.procs {
		records = append(records, p.Record())
	}
	records = append(records, c.sup.extra...)

	return records, nil
}

func (c *session) Restart(ctx context.Context, name string) ([]supervisor.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.sup.RestartErr != nil {
		return nil, c.sup.RestartErr
	}

	c.sup.mu.Lock()
	defer c.sup.mu.Unlock()

	id, idErr := strconv.Atoi(name)
	for i := range c.sup.procs {
		p := &c.sup.procs[i]
		if p.Name != name && (idErr != nil || p.ID != id) {
			continue
		}
		p.RestartCount++
		p.Status = "launching"
		if p.Pid > 0 {
			p.Pid++
		}
		return []supervisor.Record{p.Record()}, nil
	}

	return nil, fmt.Errorf("%w: process or namespace %s not found", supervisor.ErrNotFound, name)
}

func (c *session) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		c.sup.doubleClose.Add(1)
		return fmt.Errorf("session already closed")
	}
	c.sup.closed.Add(1)
	return nil
}
