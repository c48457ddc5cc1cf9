package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CLIDialer drives the pm2 command line client. Every Dial resolves the
// binary again so an upgraded or removed pm2 is noticed per operation.
type CLIDialer struct {
	// Binary is the pm2 executable name or path
	Binary string
	// Home overrides PM2_HOME for the spawned client when set
	Home string
}

func (d *CLIDialer) Dial(ctx context.Context) (Session, error) {
	// Cancellation is classified by the Manager, which can tell the caller's
	// context from its own dial timeout.
	if err := ctx.Err(); err != nil {
		return nil, opError("dial", d.Binary, ErrConnection, err)
	}

	path, err := exec.LookPath(d.Binary)
	if err != nil {
		return nil, opError("dial", d.Binary, ErrConnection, err)
	}

	env := os.Environ()
	if d.Home != "" {
		env = append(env, "PM2_HOME="+d.Home)
	}

	return &cliSession{path: path, env: env}, nil
}

type cliSession struct {
	path   string
	env    []string
	closed bool
}

var errSessionClosed = errors.New("session closed")

func (s *cliSession) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.closed {
		return nil, errSessionClosed
	}

	cmd := exec.CommandContext(ctx, s.path, args...)
	cmd.Env = s.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String() + "\n" + stdout.String())
		if detail != "" {
			return stdout.Bytes(), fmt.Errorf("%w: %s", err, detail)
		}
		return stdout.Bytes(), err
	}

	return stdout.Bytes(), nil
}

func (s *cliSession) List(ctx context.Context) ([]Record, error) {
	out, err := s.run(ctx, "jlist")
	if err != nil {
		return nil, opError("list", "", ErrQuery, err)
	}

	records, err := parseJList(out)
	if err != nil {
		return nil, opError("list", "", ErrQuery, err)
	}

	return records, nil
}

func (s *cliSession) Restart(ctx context.Context, name string) ([]Record, error) {
	if _, err := s.run(ctx, "restart", name); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, opError("restart", name, ErrNotFound, err)
		}
		return nil, opError("restart", name, ErrRestart, err)
	}

	records, err := s.List(ctx)
	if err != nil {
		return nil, opError("restart", name, ErrRestart,
			fmt.Errorf("restart issued but process state could not be read: %w", err))
	}

	var restarted []Record
	for _, r := range records {
		d, err := Decode(r)
		if err != nil {
			continue
		}
		if Matches(d, name) {
			restarted = append(restarted, r)
		}
	}

	return restarted, nil
}

func (s *cliSession) Close() error {
	s.closed = true
	return nil
}

// parseJList extracts the JSON array from jlist output. pm2 may print daemon
// banners such as "[PM2] Spawning PM2 daemon" ahead of the array, so every
// '[' is tried until one starts a list of records.
func parseJList(out []byte) ([]Record, error) {
	var lastErr error
	for off := 0; off < len(out); {
		i := bytes.IndexByte(out[off:], '[')
		if i < 0 {
			break
		}
		start := off + i

		var records []Record
		err := json.NewDecoder(bytes.NewReader(out[start:])).Decode(&records)
		if err == nil {
			return records, nil
		}
		lastErr = err
		off = start + 1
	}

	if lastErr != nil {
		return nil, fmt.Errorf("decoding process list: %w", lastErr)
	}
	return nil, fmt.Errorf("no process list in output: %q", truncate(out, 120))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
