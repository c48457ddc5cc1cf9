package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/nxadm/tail"

	"procdeck/internal/metrics"
	"procdeck/internal/models"
)

const (
	DefaultTailLines   = 100
	defaultLockTimeout = 2 * time.Second
	lockRetryDelay     = 20 * time.Millisecond
)

// LogService reads and truncates the log files the supervisor writes for each
// process. Paths are looked up on every call so rotation is picked up.
type LogService struct {
	procs *ProcessService

	// DefaultLines is used when a caller asks for a non-positive line count
	DefaultLines int
	// LockTimeout bounds advisory lock acquisition on a log file
	LockTimeout time.Duration
	// PollFollow makes Follow poll the file instead of using inotify
	PollFollow bool
}

// LogOption configures a LogService
type LogOption func(*LogService)

func WithDefaultLines(n int) LogOption {
	return func(s *LogService) {
		s.DefaultLines = n
	}
}

func WithLockTimeout(d time.Duration) LogOption {
	return func(s *LogService) {
		s.LockTimeout = d
	}
}

func WithPollFollow(poll bool) LogOption {
	return func(s *LogService) {
		s.PollFollow = poll
	}
}

func NewLogService(procs *ProcessService, opts ...LogOption) *LogService {
	s := &LogService{
		procs:        procs,
		DefaultLines: DefaultTailLines,
		LockTimeout:  defaultLockTimeout,
		PollFollow:   true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.DefaultLines < 1 {
		s.DefaultLines = DefaultTailLines
	}

	return s
}

// ResolveLogPath maps a process name and stream to the log file path the
// supervisor currently reports.
func (s *LogService) ResolveLogPath(ctx context.Context, name string, kind models.StreamKind) (string, error) {
	if name == "" {
		return "", ErrNameRequired
	}
	if kind != models.StreamStdout && kind != models.StreamStderr {
		return "", fmt.Errorf("%w: %q", ErrInvalidStream, kind)
	}

	proc, ok, err := s.procs.FindProcessByName(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProcessNotFound, name)
	}

	path, ok := proc.LogPath(kind)
	if !ok {
		return "", fmt.Errorf("%w: %q has no %s log", ErrLogPathUnavailable, name, kind)
	}

	return path, nil
}

// ReadLogTail returns the last maxLines lines of the stream's log file joined
// by newlines. Files shorter than maxLines are returned whole.
func (s *LogService) ReadLogTail(ctx context.Context, name string, kind models.StreamKind, maxLines int) (string, error) {
	path, err := s.ResolveLogPath(ctx, name, kind)
	if err != nil {
		return "", err
	}

	if maxLines < 1 {
		maxLines = s.DefaultLines
	}

	content, err := s.readFile(ctx, path)
	if err != nil {
		metrics.LogOperations.WithLabelValues("read", "error").Inc()
		return "", fmt.Errorf("%w: %s: %w", ErrLogRead, path, err)
	}
	metrics.LogOperations.WithLabelValues("read", "ok").Inc()

	return lastLines(content, maxLines), nil
}

// ClearLog truncates the stream's log file to zero length in place. The
// inode is preserved so the supervisor's open descriptor stays valid.
func (s *LogService) ClearLog(ctx context.Context, name string, kind models.StreamKind) error {
	path, err := s.ResolveLogPath(ctx, name, kind)
	if err != nil {
		return err
	}

	if err := s.truncate(ctx, path); err != nil {
		metrics.LogOperations.WithLabelValues("clear", "error").Inc()
		return fmt.Errorf("%w: %s: %w", ErrLogWrite, path, err)
	}
	metrics.LogOperations.WithLabelValues("clear", "ok").Inc()

	return nil
}

// Follow sends lines appended to the stream's log file to out until ctx is
// done. Truncation and rotation are followed.
func (s *LogService) Follow(ctx context.Context, name string, kind models.StreamKind, out chan<- string) error {
	path, err := s.ResolveLogPath(ctx, name, kind)
	if err != nil {
		return err
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      s.PollFollow,
		Location:  &tail.SeekInfo{Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLogRead, path, err)
	}
	defer func() {
		_ = t.Stop()
		t.Cleanup()
	}()

	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				if err := t.Err(); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrLogRead, path, err)
				}
				return nil
			}
			if line == nil || line.Err != nil {
				continue
			}
			select {
			case out <- line.Text:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *LogService) readFile(ctx context.Context, path string) (string, error) {
	unlock, err := s.lock(ctx, path, false)
	if err != nil {
		return "", err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("file is not valid text")
	}

	return string(data), nil
}

func (s *LogService) truncate(ctx context.Context, path string) error {
	unlock, err := s.lock(ctx, path, true)
	if err != nil {
		return err
	}
	defer unlock()

	return os.Truncate(path, 0)
}

// lock takes an advisory flock on the log file itself. The supervisor's
// writer does not lock, so this only orders our own readers and truncations.
func (s *LogService) lock(ctx context.Context, path string, exclusive bool) (func(), error) {
	// flock opens the file with O_CREATE, so a log removed between this Stat
	// and the lock is recreated empty. The identity check after locking
	// reports that case instead of serving or truncating the stray file.
	before, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.LockTimeout)
	defer cancel()

	fl := flock.New(path)

	var locked bool
	if exclusive {
		locked, err = fl.TryLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: not acquired", path)
	}

	after, err := os.Stat(path)
	if err != nil || !os.SameFile(before, after) {
		_ = fl.Unlock()
		return nil, fmt.Errorf("locking %s: file replaced while locking", path)
	}

	return func() { _ = fl.Unlock() }, nil
}

// lastLines returns at most n trailing lines of content. A final newline
// terminates the last line rather than starting an empty one.
func lastLines(content string, n int) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	return strings.Join(lines, "\n")
}
