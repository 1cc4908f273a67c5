package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid JSON config", opts: Options{Level: "info", Format: "json"}},
		{name: "valid text config", opts: Options{Level: "debug", Format: "text"}},
		{name: "console disabled", opts: Options{Level: "warn", Format: "none"}},
		{name: "trace level", opts: Options{Level: "TRACE"}},
		{name: "invalid log level", opts: Options{Level: "verbose"}, wantErr: true},
		{name: "invalid format", opts: Options{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Writer = &bytes.Buffer{}
			_, err := New(nil, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBridge_LevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		level    slog.Level
		wantLog  bool
	}{
		{"trace level logs trace", "trace", LevelTrace, true},
		{"debug level filters trace", "debug", LevelTrace, false},
		{"debug level logs debug", "debug", slog.LevelDebug, true},
		{"info level filters debug", "info", slog.LevelDebug, false},
		{"info level logs info", "info", slog.LevelInfo, true},
		{"warn level filters info", "warn", slog.LevelInfo, false},
		{"warning alias logs warn", "warning", slog.LevelWarn, true},
		{"error level filters warn", "error", slog.LevelWarn, false},
		{"error level logs error", "error", slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			exp := &recordingExporter{}
			lp := newTestLoggerProvider(exp)
			defer lp.Shutdown(context.Background())

			b, err := New(lp, Options{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("Failed to create bridge: %v", err)
			}

			b.Logger().Log(context.Background(), tt.level, "test message")
			if err := lp.ForceFlush(context.Background()); err != nil {
				t.Fatalf("ForceFlush() error = %v", err)
			}

			if got := strings.Contains(buf.String(), "test message"); got != tt.wantLog {
				t.Errorf("console: got log=%v, want log=%v, output=%s", got, tt.wantLog, buf.String())
			}
			if got := len(exp.records()) == 1; got != tt.wantLog {
				t.Errorf("provider: got log=%v, want log=%v", got, tt.wantLog)
			}
		})
	}
}

func TestBridge_TraceCorrelation(t *testing.T) {
	buf := &bytes.Buffer{}
	exp := &recordingExporter{}
	lp := newTestLoggerProvider(exp)
	defer lp.Shutdown(context.Background())

	b, err := New(lp, Options{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	ctx = WithRequestID(ctx, "req-123")
	b.Logger().InfoContext(ctx, "inside span", "k", "v")
	span.End()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("console output is not JSON: %v (%s)", err, buf.String())
	}
	sc := span.SpanContext()
	if entry[TraceIDKey] != sc.TraceID().String() {
		t.Errorf("%s = %v, want %s", TraceIDKey, entry[TraceIDKey], sc.TraceID())
	}
	if entry[SpanIDKey] != sc.SpanID().String() {
		t.Errorf("%s = %v, want %s", SpanIDKey, entry[SpanIDKey], sc.SpanID())
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["k"] != "v" {
		t.Errorf("k = %v", entry["k"])
	}

	if err := lp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	records := exp.records()
	if len(records) != 1 {
		t.Fatalf("exported %d records, want 1", len(records))
	}
	if records[0].TraceID() != sc.TraceID() || records[0].SpanID() != sc.SpanID() {
		t.Errorf("exported record ids = %s/%s, want %s/%s",
			records[0].TraceID(), records[0].SpanID(), sc.TraceID(), sc.SpanID())
	}
	if got := records[0].Body().AsString(); got != "inside span" {
		t.Errorf("body = %q", got)
	}
}

func TestBridge_NoSpanNoIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	b, err := New(nil, Options{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	b.Logger().Info("no span")
	if strings.Contains(buf.String(), TraceIDKey) {
		t.Errorf("unexpected trace id in %s", buf.String())
	}
}

func TestBridge_SetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	b, err := New(nil, Options{Level: "error", Format: "text", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	b.Logger().Info("first")
	b.SetLevel(slog.LevelDebug)
	b.Logger().Info("second")

	if strings.Contains(buf.String(), "first") {
		t.Error("info logged while level was error")
	}
	if !strings.Contains(buf.String(), "second") {
		t.Error("info not logged after lowering the level")
	}
	if b.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v", b.Level())
	}
}

func TestBridge_TraceLevelRendering(t *testing.T) {
	buf := &bytes.Buffer{}
	b, err := New(nil, Options{Level: "trace", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	b.Logger().Log(context.Background(), LevelTrace, "very verbose")
	if !strings.Contains(buf.String(), `"level":"TRACE"`) {
		t.Errorf("expected TRACE level, got %s", buf.String())
	}
}

func TestBridge_ConsoleOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	exp := &recordingExporter{}
	lp := newTestLoggerProvider(exp)
	defer lp.Shutdown(context.Background())

	b, err := New(lp, Options{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	b.Console().Warn("export failed")
	lp.ForceFlush(context.Background())

	if !strings.Contains(buf.String(), "export failed") {
		t.Error("console logger wrote nothing")
	}
	if len(exp.records()) != 0 {
		t.Error("console logger must not reach the provider")
	}

	silent, err := New(lp, Options{Level: "info", Format: "none"})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}
	if silent.Console().Enabled(context.Background(), slog.LevelError) {
		t.Error("console logger should discard when console output is disabled")
	}
}

func TestBridge_WithAttrsAndGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	b, err := New(nil, Options{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Failed to create bridge: %v", err)
	}

	b.Logger().With("component", "server").WithGroup("http").Info("listening", "port", 3000)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("console output is not JSON: %v", err)
	}
	if entry["component"] != "server" {
		t.Errorf("component = %v", entry["component"])
	}
	group, ok := entry["http"].(map[string]any)
	if !ok || group["port"] != float64(3000) {
		t.Errorf("http group = %v", entry["http"])
	}
}

func TestInstall(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		installed.Store(false)
	})
	installed.Store(false)

	buf := &bytes.Buffer{}
	b, err := Install(nil, Options{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if slog.Default() != b.Logger() {
		t.Error("Install did not set the slog default")
	}

	if _, err := Install(nil, Options{Level: "debug"}); !errors.Is(err, ErrAlreadyInstalled) {
		t.Errorf("second Install() error = %v, want ErrAlreadyInstalled", err)
	}
	if slog.Default() != b.Logger() {
		t.Error("second Install replaced the default logger")
	}
}

func TestInstall_InvalidLevelCanRetry(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		installed.Store(false)
	})
	installed.Store(false)

	if _, err := Install(nil, Options{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an invalid level")
	}
	if _, err := Install(nil, Options{Level: "info", Writer: &bytes.Buffer{}}); err != nil {
		t.Errorf("Install after a failed attempt: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{" Info ", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"fatal", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"text", FormatText, false},
		{"console", FormatText, false},
		{"none", FormatNone, false},
		{"xml", FormatJSON, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("parseFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}
