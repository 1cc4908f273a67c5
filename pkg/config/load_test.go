package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "observe.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 8080
  shutdown_timeout: "10s"

telemetry:
  service_name: "checkout"
  exporter:
    endpoint: "https://collector.internal:4318"
    protocol: "http/protobuf"
    headers:
      authorization: "Bearer abc"
  tracing:
    sampler: "ratio"
    sample_ratio: 0.25
    batch:
      queue_size: 100
      max_batch_size: 10
      overflow: "block"
  logging:
    level: "debug"
    format: "text"
  metrics:
    interval: "15s"
    prometheus:
      enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("expected address %q, got %q", "0.0.0.0:8080", cfg.Server.Address())
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Telemetry.ServiceName != "checkout" {
		t.Errorf("expected service name checkout, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.Exporter.Protocol != ProtocolHTTP {
		t.Errorf("expected protocol %q, got %q", ProtocolHTTP, cfg.Telemetry.Exporter.Protocol)
	}
	if cfg.Telemetry.Exporter.Headers["authorization"] != "Bearer abc" {
		t.Errorf("expected authorization header, got %v", cfg.Telemetry.Exporter.Headers)
	}
	if cfg.Telemetry.Tracing.Batch.Overflow != OverflowBlock {
		t.Errorf("expected block overflow, got %q", cfg.Telemetry.Tracing.Batch.Overflow)
	}
	// Unset batch fields still receive defaults.
	if cfg.Telemetry.Tracing.Batch.Interval != DefaultTraceBatchInterval {
		t.Errorf("expected default trace interval, got %v", cfg.Telemetry.Tracing.Batch.Interval)
	}
	if cfg.Telemetry.Metrics.Interval != 15*time.Second {
		t.Errorf("expected metrics interval 15s, got %v", cfg.Telemetry.Metrics.Interval)
	}
	if cfg.Telemetry.Metrics.Prometheus.Path != DefaultPrometheusPath {
		t.Errorf("expected default prometheus path, got %q", cfg.Telemetry.Metrics.Prometheus.Path)
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Server.Address() != "127.0.0.1:3000" {
		t.Errorf("expected default address 127.0.0.1:3000, got %q", cfg.Server.Address())
	}
	if cfg.Telemetry.Metrics.Interval != 10*time.Second {
		t.Errorf("expected 10s metric interval, got %v", cfg.Telemetry.Metrics.Interval)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server:\n  port: [unclosed\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
telemetry:
  exporter:
    endpoint: "not-a-url"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "telemetry.exporter.endpoint") {
		t.Errorf("expected endpoint field in error, got: %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
telemetry:
  service_name: "from-file"
  logging:
    level: "debug"
`)

	t.Setenv("DEMO_HOST", "0.0.0.0")
	t.Setenv("DEMO_PORT", "9090")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "from-env")
	t.Setenv("OTEL_LOG_LEVEL", "ERROR")
	t.Setenv("OTEL_METRIC_EXPORT_INTERVAL", "2500")
	t.Setenv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("expected env address, got %q", cfg.Server.Address())
	}
	if cfg.Telemetry.Exporter.Endpoint != "http://otel-collector:4317" {
		t.Errorf("expected env endpoint, got %q", cfg.Telemetry.Exporter.Endpoint)
	}
	if cfg.Telemetry.ServiceName != "from-env" {
		t.Errorf("expected env service name, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Telemetry.Logging.Level != "ERROR" {
		t.Errorf("expected env log level, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Interval != 2500*time.Millisecond {
		t.Errorf("expected 2.5s metric interval, got %v", cfg.Telemetry.Metrics.Interval)
	}
	if cfg.Telemetry.Tracing.Sampler != "ratio" || cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("expected ratio sampler 0.5, got %q %v", cfg.Telemetry.Tracing.Sampler, cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_UnsetKeepsFileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "10.0.0.1"
  port: 8081
`)

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Address() != "10.0.0.1:8081" {
		t.Errorf("expected file address, got %q", cfg.Server.Address())
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "DEMO_PORT", "http"},
		{"non-numeric interval", "OTEL_METRIC_EXPORT_INTERVAL", "soon"},
		{"invalid level", "OTEL_LOG_LEVEL", "chatty"},
		{"malformed endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfigWithEnvOverrides(""); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
