package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"demo-observe/observe/pkg/cli"
	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry"
	"demo-observe/observe/pkg/telemetry/logging"
)

// syncBuffer is written by the console logger and the stdout exporters
// from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testRunConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Telemetry.Exporter.Protocol = config.ProtocolStdout
	cfg.Telemetry.Metrics.Interval = time.Hour
	return cfg
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Errorf("GET %s: %v", url, err)
		return 0, ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRun_GracefulShutdown(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		code int
		body string
	}
	results := map[string]result{}

	err := run(ctx, testRunConfig(), runOptions{
		out: out,
		ready: func(addr string) {
			go func() {
				defer cancel()
				for _, path := range []string{"/health", "/", "/error"} {
					code, body := get(t, "http://"+addr+path)
					results[path] = result{code, body}
				}
			}()
		},
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitOK {
		t.Errorf("exit code = %d, want %d", code, cli.ExitOK)
	}

	want := map[string]result{
		"/health": {http.StatusOK, "UP"},
		"/":       {http.StatusOK, "root"},
		"/error":  {http.StatusServiceUnavailable, "Service Unavailable\n"},
	}
	for path, w := range want {
		if got := results[path]; got != w {
			t.Errorf("GET %s = %d %q, want %d %q", path, got.code, got.body, w.code, w.body)
		}
	}

	// Shutdown flushed every pipeline to the stdout exporters.
	output := out.String()
	for _, s := range []string{"GET /health", "GET /error", "http.server.request.count", "shutdown complete"} {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q", s)
		}
	}
}

func TestRun_BootstrapFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := testRunConfig()
	cfg.Telemetry.Exporter.Protocol = config.ProtocolGRPC
	cfg.Telemetry.Exporter.Endpoint = "http://" + addr
	cfg.Telemetry.Exporter.ProbeTimeout = 500 * time.Millisecond

	out := &syncBuffer{}
	err = run(context.Background(), cfg, runOptions{out: out})
	if err == nil {
		t.Fatal("run() succeeded with an unreachable exporter")
	}

	var bootErr *telemetry.BootstrapError
	if !errors.As(err, &bootErr) {
		t.Errorf("error %v is not a BootstrapError", err)
	}
	if code := cli.ExitCode(err); code != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, cli.ExitFailure)
	}
	if !strings.Contains(out.String(), "telemetry bootstrap failed") {
		t.Errorf("console output missing the failure: %s", out.String())
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	cfg := testRunConfig()
	cfg.Telemetry.Logging.Level = "loud"

	err := run(context.Background(), cfg, runOptions{out: io.Discard})
	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("run() error = %v, want a ConfigError", err)
	}
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("exit code = %d", cli.ExitCode(err))
	}
}

func TestApplyLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"lower", "debug", slog.LevelDebug},
		{"raise", "error", slog.LevelError},
		{"unchanged", "info", slog.LevelInfo},
		{"invalid keeps current", "loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			bridge, err := logging.New(nil, logging.Options{Level: "info", Writer: buf})
			if err != nil {
				t.Fatalf("logging.New() error = %v", err)
			}

			applyLogLevel(bridge, tt.level, bridge.Console())
			if got := bridge.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}
