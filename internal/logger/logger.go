package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"
)

const (
	RequestIDKey = "request_id"
)

var (
	logLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	RequestIDContextKey = contextKey(RequestIDKey)
)

type (
	contextKey string

	contextHandler struct {
		slog.Handler
		keys []any
	}

	// Options controls where log records go.
	Options struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
)

// New builds the process logger. With a path set, records go to stdout and
// to a size-rotated file; otherwise to stderr.
func New(opts Options) *slog.Logger {
	return NewWithWriter(logWriter(opts), opts.Level)
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handlerOptions := &slog.HandlerOptions{
		Level: LogLevel(level),
	}

	if strings.EqualFold(level, "debug") {
		handlerOptions.AddSource = true
		handlerOptions.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, ok := a.Value.Any().(*slog.Source)
				if ok {
					directory := filepath.Dir(source.File)
					relativePath := path.Join(filepath.Base(directory), filepath.Base(source.File))
					a.Value = slog.StringValue(relativePath + ":" + strconv.Itoa(source.Line))
				}
			}

			return a
		}
	}

	return slog.New(contextHandler{
		slog.NewTextHandler(w, handlerOptions),
		[]any{RequestIDContextKey},
	})
}

func LogLevel(level string) slog.Level {
	l, ok := logLevels[strings.ToLower(level)]
	if !ok {
		return slog.LevelInfo
	}

	return l
}

func logWriter(opts Options) io.Writer {
	if opts.Path == "" {
		return os.Stderr
	}

	logPath := opts.Path
	if info, err := os.Stat(logPath); err == nil && info.IsDir() {
		logPath = filepath.Join(logPath, "procdeck.log")
	}

	rotating := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}

	return io.MultiWriter(os.Stdout, rotating)
}

func (c contextKey) String() string {
	return string(c)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.observe(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs), h.keys}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name), h.keys}
}

func (h contextHandler) observe(ctx context.Context) (as []slog.Attr) {
	if ctx == nil {
		return nil
	}
	for _, k := range h.keys {
		a, ok := ctx.Value(k).(slog.Attr)
		if !ok {
			continue
		}
		a.Value = a.Value.Resolve()
		as = append(as, a)
	}

	return as
}

// NewRequestID returns a fresh request id attribute.
func NewRequestID() slog.Attr {
	return slog.String(RequestIDKey, uuid.NewString())
}

// WithRequestID stores the request id attribute on the context so every
// record logged with that context carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, slog.String(RequestIDKey, id))
}

// RequestID returns the request id stored on ctx, or "".
func RequestID(ctx context.Context) string {
	a, ok := ctx.Value(RequestIDContextKey).(slog.Attr)
	if !ok {
		return ""
	}
	return a.Value.String()
}
