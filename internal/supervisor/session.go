package supervisor

import (
	"context"
)

// Record is one process entry exactly as the supervisor reported it.
type Record map[string]any

// Session is a single open control channel. A session serves one logical
// operation and is closed by the Manager when that operation ends.
type Session interface {
	// List returns every managed process in the order the supervisor reports them.
	List(ctx context.Context) ([]Record, error)
	// Restart restarts the process identified by name or id and returns the
	// records the supervisor reports for it afterwards.
	Restart(ctx context.Context, name string) ([]Record, error)
	Close() error
}

// Dialer opens sessions. Each call must return a new, unshared session.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

func (f DialerFunc) Dial(ctx context.Context) (Session, error) {
	return f(ctx)
}
