package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for the observe service.
// It is loaded from a YAML file and can be overridden by environment
// variables and command line flags.
type Config struct {
	// Server contains configuration for the HTTP listener and the graceful
	// shutdown of in-flight requests.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for the trace, log and metric
	// pipelines and for the exporter they share.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// Host is the interface to bind to.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the TCP port to bind to.
	// Default: 3000
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period in-flight requests get to finish
	// once a termination signal arrives. Exceeding it is a failed shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// DownstreamTimeout bounds the self-call made by the root handler.
	// Default: 5s
	DownstreamTimeout time.Duration `yaml:"downstream_timeout"`
}

// Address returns the host:port pair the server listens on.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// ServiceName is reported as the service.name resource attribute.
	// Default: "observe"
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is reported as the service.version resource attribute.
	// Left empty, the binary version is used.
	ServiceVersion string `yaml:"service_version"`

	// Exporter configures the collector endpoint shared by all signals.
	Exporter ExporterConfig `yaml:"exporter"`

	// Tracing contains trace pipeline configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Logging contains log pipeline and log bridge configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metric pipeline configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains readiness check configuration.
	Health HealthConfig `yaml:"health"`

	// ShutdownTimeout bounds each provider's final flush. Providers are
	// flushed one after another, each with its own budget.
	// Default: 5s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// StatsSchedule is a cron expression for the periodic export queue
	// report. Empty disables the report.
	// Default: "" (disabled)
	StatsSchedule string `yaml:"stats_schedule"`
}

// ExporterConfig configures the telemetry exporter.
type ExporterConfig struct {
	// Endpoint is the collector URL. The scheme selects transport security:
	// http is plaintext, https uses TLS.
	// Default: "http://localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Protocol selects the exporter implementation.
	// Options: "grpc", "http/protobuf", "stdout"
	// Default: "grpc"
	Protocol string `yaml:"protocol"`

	// Timeout bounds a single export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// SkipProbe disables the TCP reachability probe made at bootstrap.
	// Default: false
	SkipProbe bool `yaml:"skip_probe"`

	// ProbeTimeout bounds the bootstrap reachability probe.
	// Default: 2s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// BatchConfig configures a bounded export queue.
type BatchConfig struct {
	// QueueSize is the capacity of the queue between producers and the
	// export goroutine.
	// Default: 2048
	QueueSize int `yaml:"queue_size"`

	// MaxBatchSize caps the number of records per export call.
	// Default: 512
	MaxBatchSize int `yaml:"max_batch_size"`

	// Interval is the maximum time a record waits before being exported.
	// Default: 5s for traces, 1s for logs
	Interval time.Duration `yaml:"interval"`

	// ExportTimeout bounds a single export call made by the queue.
	// Default: 30s
	ExportTimeout time.Duration `yaml:"export_timeout"`

	// Overflow selects what happens when the queue is full.
	// Options: "drop" (count and discard), "block" (wait up to BlockTimeout)
	// Default: "drop"
	Overflow string `yaml:"overflow"`

	// BlockTimeout bounds how long a producer waits under the block policy.
	// Default: 100ms
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Batch configures the span export queue.
	Batch BatchConfig `yaml:"batch"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum severity forwarded by the log bridge.
	// Options: "trace", "debug", "info", "warn", "error" (case-insensitive)
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the local console output.
	// Options: "json", "text", "none"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in console entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Batch configures the log record export queue.
	Batch BatchConfig `yaml:"batch"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Interval is the period of the background metric export.
	// Default: 10s
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single metric collection and export.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Temporality selects the aggregation temporality of pushed metrics.
	// Options: "delta", "cumulative"
	// Default: "delta"
	Temporality string `yaml:"temporality"`

	// Prometheus exposes the same instruments on a pull endpoint.
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// PrometheusConfig configures the Prometheus pull endpoint.
type PrometheusConfig struct {
	// Enabled registers the endpoint.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for metrics scraping.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// HealthConfig contains readiness check configuration.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// CheckExporter makes readiness depend on the exporter endpoint being
	// reachable.
	// Default: false
	CheckExporter bool `yaml:"check_exporter"`
}
