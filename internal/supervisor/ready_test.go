package supervisor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procdeck/internal/supervisor"
	"procdeck/internal/supervisor/supervisortest"
)

func TestWaitReady(t *testing.T) {
	t.Run("comes up after a few attempts", func(t *testing.T) {
		sup := supervisortest.New()
		var calls atomic.Int32
		dialer := supervisor.DialerFunc(func(ctx context.Context) (supervisor.Session, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return sup.Dial(ctx)
		})

		err := supervisor.WaitReady(context.Background(), supervisor.NewManager(dialer), 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up", func(t *testing.T) {
		sup := supervisortest.New()
		sup.DialErr = errors.New("connection refused")

		err := supervisor.WaitReady(context.Background(), supervisor.NewManager(sup), 300*time.Millisecond)
		require.ErrorIs(t, err, supervisor.ErrConnection)
	})

	t.Run("query failures are not retried", func(t *testing.T) {
		sup := supervisortest.New()
		sup.ListErr = errors.Join(supervisor.ErrQuery, errors.New("daemon busy"))

		err := supervisor.WaitReady(context.Background(), supervisor.NewManager(sup), 10*time.Second)
		require.ErrorIs(t, err, supervisor.ErrQuery)
		assert.Equal(t, int64(1), sup.Opened())
	})
}
