package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"procdeck/internal/metrics"
)

// Manager owns the connect/disconnect lifecycle of control channel sessions.
// It never pools: every operation dials its own session.
type Manager struct {
	dialer Dialer
	logger *slog.Logger

	// DialTimeout bounds session establishment. Zero means only the caller's
	// context applies.
	DialTimeout time.Duration
}

// Option configures a Manager
type Option func(*Manager)

// WithDialTimeout sets the session establishment timeout
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.DialTimeout = d
	}
}

// WithLogger sets the logger used for close failures
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func NewManager(d Dialer, opts ...Option) *Manager {
	m := &Manager{
		dialer:      d,
		logger:      slog.Default(),
		DialTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithSession opens a session, runs fn with it and closes the session on every
// exit path before returning, including panics inside fn. Dial failures are
// reported as ErrConnection, or ErrCanceled when ctx ended first. Errors from
// fn are returned as-is unless ctx ended, in which case they become ErrCanceled.
func WithSession[T any](ctx context.Context, m *Manager, op string, fn func(context.Context, Session) (T, error)) (result T, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, opError(op, "", ErrCanceled, ctxErr)
	}

	dialCtx := ctx
	if m.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.DialTimeout)
		defer cancel()
	}

	sess, err := m.dialer.Dial(dialCtx)
	if err != nil {
		metrics.SupervisorErrors.WithLabelValues("dial").Inc()
		if ctx.Err() != nil {
			return result, opError(op, "", ErrCanceled, errors.Join(ctx.Err(), err))
		}
		if hasKind(err) {
			return result, err
		}
		return result, opError(op, "", ErrConnection, err)
	}
	metrics.SessionsOpened.Inc()

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			m.logger.WarnContext(ctx, "Failed to close supervisor session", "op", op, "error", cerr)
		}
		metrics.SessionsClosed.Inc()
	}()

	result, err = fn(ctx, sess)
	if err != nil {
		metrics.SupervisorErrors.WithLabelValues(op).Inc()
		if ctx.Err() != nil && !errors.Is(err, ErrCanceled) {
			err = opError(op, "", ErrCanceled, errors.Join(ctx.Err(), err))
		}
	}

	return result, err
}

// Ping opens and closes a session, listing once to prove the channel answers.
func (m *Manager) Ping(ctx context.Context) error {
	_, err := WithSession(ctx, m, "ping", func(ctx context.Context, s Session) ([]Record, error) {
		return s.List(ctx)
	})
	return err
}
