package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
)

// ErrAlreadyInstalled is returned by Install when a bridge is already the
// process-wide logger.
var ErrAlreadyInstalled = errors.New("log bridge already installed")

// LogFormat represents the console output format.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in plain text format.
	FormatText LogFormat = "text"
	// FormatNone disables console output; records only go to the provider.
	FormatNone LogFormat = "none"
)

// installed guards the process-wide slog default.
var installed atomic.Bool

// Options configures a Bridge.
type Options struct {
	// Name is the instrumentation scope of records sent to the provider.
	Name string

	// Level is the minimum severity ("trace", "debug", "info", "warn", "error").
	Level string

	// Format is the console format ("json", "text", "none").
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// Writer is the console writer (defaults to os.Stdout)
	Writer io.Writer
}

// Bridge routes slog records to an OpenTelemetry logger provider and to
// the console. Both sides see the trace and span id of the record's
// context.
type Bridge struct {
	level   *slog.LevelVar
	handler *Handler
	logger  *slog.Logger
	console *slog.Logger
}

// New creates a Bridge without installing it. A nil provider disables the
// OpenTelemetry side.
func New(lp log.LoggerProvider, opts Options) (*Bridge, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	name := opts.Name
	if name == "" {
		name = "observe"
	}

	lv := new(slog.LevelVar)
	lv.Set(level)

	var console slog.Handler
	handlerOpts := &slog.HandlerOptions{
		Level:       lv,
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceLevel,
	}
	switch format {
	case FormatJSON:
		console = slog.NewJSONHandler(writer, handlerOpts)
	case FormatText:
		console = slog.NewTextHandler(writer, handlerOpts)
	}

	var otelHandler slog.Handler
	if lp != nil {
		otelHandler = otelslog.NewHandler(name,
			otelslog.WithLoggerProvider(lp),
			otelslog.WithSource(opts.AddSource),
		)
	}

	h := &Handler{level: lv, otel: otelHandler, console: console}

	consoleOnly := slog.New(slog.DiscardHandler)
	if console != nil {
		consoleOnly = slog.New(&Handler{level: lv, console: console})
	}

	return &Bridge{
		level:   lv,
		handler: h,
		logger:  slog.New(h),
		console: consoleOnly,
	}, nil
}

// Install creates a Bridge and makes it the slog default. It may succeed
// once per process; later calls return ErrAlreadyInstalled and leave the
// installed bridge in place.
func Install(lp log.LoggerProvider, opts Options) (*Bridge, error) {
	if !installed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInstalled
	}

	b, err := New(lp, opts)
	if err != nil {
		installed.Store(false)
		return nil, err
	}

	slog.SetDefault(b.logger)
	return b, nil
}

// Logger returns the logger writing to both sides of the bridge.
func (b *Bridge) Logger() *slog.Logger {
	return b.logger
}

// Console returns a logger that writes to the console only. Export
// pipelines log through it so their own failures never feed back into
// the queue they report on.
func (b *Bridge) Console() *slog.Logger {
	return b.console
}

// Handler returns the bridge handler.
func (b *Bridge) Handler() *Handler {
	return b.handler
}

// Level returns the current minimum severity.
func (b *Bridge) Level() slog.Level {
	return b.level.Level()
}

// SetLevel changes the minimum severity of both sides at runtime.
func (b *Bridge) SetLevel(level slog.Level) {
	b.level.Set(level)
}

// Handler fans records out to the OpenTelemetry handler and the console
// handler. Records below the minimum severity are rejected in Enabled,
// before slog builds them.
type Handler struct {
	level   slog.Leveler
	otel    slog.Handler
	console slog.Handler
}

var _ slog.Handler = (*Handler)(nil)

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error

	if h.otel != nil && h.otel.Enabled(ctx, r.Level) {
		if err := h.otel.Handle(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}

	if h.console != nil {
		cr := r.Clone()
		cr.AddAttrs(contextAttrs(ctx)...)
		if err := h.console.Handle(ctx, cr); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	if h.otel != nil {
		out.otel = h.otel.WithAttrs(attrs)
	}
	if h.console != nil {
		out.console = h.console.WithAttrs(attrs)
	}
	return &out
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	if h.otel != nil {
		out.otel = h.otel.WithGroup(name)
	}
	if h.console != nil {
		out.console = h.console.WithGroup(name)
	}
	return &out
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch formatStr {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT", "console":
		return FormatText, nil
	case "none", "NONE":
		return FormatNone, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
