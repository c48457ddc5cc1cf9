package supervisor_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procdeck/internal/supervisor"
)

// bridge is a minimal supervisor bridge speaking the socket transport.
type bridge struct {
	ln      net.Listener
	wg      sync.WaitGroup
	handler func(supervisor.Request) supervisor.Response
}

func startBridge(t *testing.T, handler func(supervisor.Request) supervisor.Response) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "pd")
	require.NoError(t, err)
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	b := &bridge{ln: ln, handler: handler}
	b.wg.Add(1)
	go b.serve()

	t.Cleanup(func() {
		_ = ln.Close()
		b.wg.Wait()
		_ = os.RemoveAll(dir)
	})

	return path
}

func (b *bridge) serve() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer conn.Close()
			dec := json.NewDecoder(bufio.NewReader(conn))
			enc := json.NewEncoder(conn)
			for {
				var req supervisor.Request
				if err := dec.Decode(&req); err != nil {
					return
				}
				if b.handler == nil {
					// Simulate a hung daemon.
					continue
				}
				if err := enc.Encode(b.handler(req)); err != nil {
					return
				}
			}
		}()
	}
}

func socketManager(path string) *supervisor.Manager {
	return supervisor.NewManager(&supervisor.SocketDialer{Path: path})
}

func TestSocketList(t *testing.T) {
	path := startBridge(t, func(req supervisor.Request) supervisor.Response {
		if req.Method != supervisor.MethodList {
			return supervisor.Response{Error: "unexpected method"}
		}
		return supervisor.Response{OK: true, Processes: []supervisor.Record{
			{"name": "api", "pm_id": 0},
			{"name": "worker", "pm_id": 1},
		}}
	})

	records, err := supervisor.WithSession(context.Background(), socketManager(path), "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "api", records[0]["name"])
	assert.Equal(t, "worker", records[1]["name"])
}

func TestSocketListRejected(t *testing.T) {
	path := startBridge(t, func(supervisor.Request) supervisor.Response {
		return supervisor.Response{Error: "daemon busy"}
	})

	_, err := supervisor.WithSession(context.Background(), socketManager(path), "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.ErrorIs(t, err, supervisor.ErrQuery)
	assert.Contains(t, err.Error(), "daemon busy")
}

func TestSocketRestart(t *testing.T) {
	path := startBridge(t, func(req supervisor.Request) supervisor.Response {
		switch req.Name {
		case "api":
			return supervisor.Response{OK: true, Processes: []supervisor.Record{{"name": "api", "pm_id": 0}}}
		case "flaky":
			return supervisor.Response{Error: "max restarts reached"}
		default:
			return supervisor.Response{Code: supervisor.CodeNotFound, Error: "process not found"}
		}
	})
	mgr := socketManager(path)

	restart := func(name string) ([]supervisor.Record, error) {
		return supervisor.WithSession(context.Background(), mgr, "restart",
			func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
				return s.Restart(ctx, name)
			})
	}

	records, err := restart("api")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = restart("ghost")
	require.ErrorIs(t, err, supervisor.ErrNotFound)

	_, err = restart("flaky")
	require.ErrorIs(t, err, supervisor.ErrRestart)
}

func TestSocketDialRefused(t *testing.T) {
	_, err := supervisor.WithSession(context.Background(), socketManager(filepath.Join(t.TempDir(), "missing.sock")), "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.ErrorIs(t, err, supervisor.ErrConnection)
}

func TestSocketDialTimeoutIsConnectionError(t *testing.T) {
	path := startBridge(t, func(supervisor.Request) supervisor.Response {
		return supervisor.Response{OK: true}
	})
	mgr := supervisor.NewManager(&supervisor.SocketDialer{Path: path}, supervisor.WithDialTimeout(time.Nanosecond))

	_, err := supervisor.WithSession(context.Background(), mgr, "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.ErrorIs(t, err, supervisor.ErrConnection)
	assert.NotErrorIs(t, err, supervisor.ErrCanceled)

	// readiness keeps retrying a slow supervisor
	err = supervisor.WaitReady(context.Background(), mgr, 300*time.Millisecond)
	require.ErrorIs(t, err, supervisor.ErrConnection)
}

func TestSocketHungDaemonHonoursDeadline(t *testing.T) {
	path := startBridge(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := supervisor.WithSession(ctx, socketManager(path), "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.ErrorIs(t, err, supervisor.ErrCanceled)
	assert.Less(t, time.Since(start), 2*time.Second)

	var netErr net.Error
	assert.True(t, errors.As(err, &netErr) && netErr.Timeout())
}
