package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"procdeck/internal/supervisor"
	"procdeck/internal/supervisor/supervisortest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWithSessionClosesOnSuccess(t *testing.T) {
	sup := supervisortest.New(supervisortest.Process{ID: 0, Name: "api", Status: "online"})
	mgr := supervisor.NewManager(sup)

	records, err := supervisor.WithSession(context.Background(), mgr, "list",
		func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
			return s.List(ctx)
		})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(1), sup.Opened())
	assert.Equal(t, int64(1), sup.Closed())
	assert.Zero(t, sup.DoubleClosed())
}

func TestWithSessionClosesOnFailure(t *testing.T) {
	sup := supervisortest.New()
	mgr := supervisor.NewManager(sup)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := supervisor.WithSession(context.Background(), mgr, "list",
			func(context.Context, supervisor.Session) (int, error) {
				return 0, boom
			})
		require.ErrorIs(t, err, boom)
	}

	assert.Equal(t, int64(3), sup.Opened())
	assert.Equal(t, int64(3), sup.Closed())
	assert.Zero(t, sup.DoubleClosed())
}

func TestWithSessionClosesOnPanic(t *testing.T) {
	sup := supervisortest.New()
	mgr := supervisor.NewManager(sup)

	assert.Panics(t, func() {
		_, _ = supervisor.WithSession(context.Background(), mgr, "list",
			func(context.Context, supervisor.Session) (int, error) {
				panic("fn exploded")
			})
	})
	assert.Equal(t, int64(1), sup.Closed())
}

func TestWithSessionDialFailure(t *testing.T) {
	sup := supervisortest.New()
	sup.DialErr = errors.New("connect: no such file or directory")
	mgr := supervisor.NewManager(sup)

	called := false
	_, err := supervisor.WithSession(context.Background(), mgr, "list",
		func(context.Context, supervisor.Session) (int, error) {
			called = true
			return 0, nil
		})

	require.ErrorIs(t, err, supervisor.ErrConnection)
	assert.False(t, called)
	assert.Zero(t, sup.Opened())

	var opErr *supervisor.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "list", opErr.Op)
}

func TestWithSessionCanceled(t *testing.T) {
	t.Run("before dial", func(t *testing.T) {
		sup := supervisortest.New()
		mgr := supervisor.NewManager(sup)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := supervisor.WithSession(ctx, mgr, "list",
			func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
				return s.List(ctx)
			})
		require.ErrorIs(t, err, supervisor.ErrCanceled)
		assert.Zero(t, sup.Opened())
	})

	t.Run("during operation", func(t *testing.T) {
		sup := supervisortest.New()
		mgr := supervisor.NewManager(sup)

		ctx, cancel := context.WithCancel(context.Background())
		_, err := supervisor.WithSession(ctx, mgr, "list",
			func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
				cancel()
				return s.List(ctx)
			})
		require.ErrorIs(t, err, supervisor.ErrCanceled)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(1), sup.Opened())
		assert.Equal(t, int64(1), sup.Closed())
	})
}

func TestWithSessionDialTimeout(t *testing.T) {
	blocking := supervisor.DialerFunc(func(ctx context.Context) (supervisor.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	mgr := supervisor.NewManager(blocking, supervisor.WithDialTimeout(20*time.Millisecond))

	_, err := supervisor.WithSession(context.Background(), mgr, "list",
		func(context.Context, supervisor.Session) (int, error) { return 0, nil })
	require.ErrorIs(t, err, supervisor.ErrConnection)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithSessionIsolation(t *testing.T) {
	sup := supervisortest.New(supervisortest.Process{ID: 0, Name: "api", Status: "online"})
	mgr := supervisor.NewManager(sup)

	const workers = 16
	sessions := make(chan supervisor.Session, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := supervisor.WithSession(context.Background(), mgr, "list",
				func(ctx context.Context, s supervisor.Session) ([]supervisor.Record, error) {
					sessions <- s
					return s.List(ctx)
				})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(sessions)

	seen := make(map[supervisor.Session]bool)
	for s := range sessions {
		assert.False(t, seen[s], "session reused across operations")
		seen[s] = true
	}
	assert.Len(t, seen, workers)
	assert.Equal(t, int64(workers), sup.Opened())
	assert.Equal(t, int64(workers), sup.Closed())
}

func TestPing(t *testing.T) {
	sup := supervisortest.New()
	require.NoError(t, supervisor.NewManager(sup).Ping(context.Background()))

	sup.ListErr = errors.Join(supervisor.ErrQuery, errors.New("daemon busy"))
	err := supervisor.NewManager(sup).Ping(context.Background())
	require.ErrorIs(t, err, supervisor.ErrQuery)
	assert.Equal(t, sup.Opened(), sup.Closed())
}
