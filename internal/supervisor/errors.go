package supervisor

import (
	"errors"
	"fmt"
)

// Error kinds returned by the channel manager and its transports.
var (
	// ErrConnection indicates the control channel could not be established
	ErrConnection = errors.New("supervisor: connection failed")

	// ErrQuery indicates the channel opened but the list request was rejected
	ErrQuery = errors.New("supervisor: query failed")

	// ErrRestart indicates the restart primitive itself failed
	ErrRestart = errors.New("supervisor: restart failed")

	// ErrNotFound indicates the supervisor does not know the requested process
	ErrNotFound = errors.New("supervisor: process not found")

	// ErrCanceled indicates the operation was abandoned because its context ended
	ErrCanceled = errors.New("supervisor: operation canceled")

	// ErrMalformedRecord indicates a process record could not be decoded
	ErrMalformedRecord = errors.New("supervisor: malformed process record")
)

// OpError describes a failed supervisor operation.
type OpError struct {
	// Op is the operation that failed (dial, list, restart, decode)
	Op string
	// Target is the process name or channel address involved, if any
	Target string
	// Kind is one of the Err* sentinels above
	Kind error
	// Err is the underlying cause
	Err error
}

func (e *OpError) Error() string {
	msg := e.Kind.Error()
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s %q", msg, e.Op, e.Target)
	} else {
		msg = fmt.Sprintf("%s %s", msg, e.Op)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op, target string, kind, err error) *OpError {
	return &OpError{Op: op, Target: target, Kind: kind, Err: err}
}

// hasKind reports whether err already carries one of the sentinel kinds, so
// transports can return classified errors without being wrapped twice.
func hasKind(err error) bool {
	for _, k := range []error{ErrConnection, ErrQuery, ErrRestart, ErrNotFound, ErrCanceled, ErrMalformedRecord} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
