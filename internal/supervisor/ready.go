package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitReady pings the supervisor with exponential backoff until it answers or
// maxElapsed passes. Only connection failures are retried; anything else
// means the channel is up but unhappy and is returned immediately.
func WaitReady(ctx context.Context, m *Manager, maxElapsed time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := m.Ping(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConnection) {
			return backoff.Permanent(err)
		}
		slog.DebugContext(ctx, "Supervisor not reachable yet", "attempt", attempt, "error", err)
		return err
	}

	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}
