package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 3000
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB
	DefaultDownstreamTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultServiceName          = "observe"
	DefaultTelemetryShutdown    = 5 * time.Second
	DefaultExporterEndpoint     = "http://localhost:4317"
	DefaultExporterProtocol     = ProtocolGRPC
	DefaultExporterTimeout      = 10 * time.Second
	DefaultExporterProbeTimeout = 2 * time.Second
	DefaultQueueSize            = 2048
	DefaultMaxBatchSize         = 512
	DefaultTraceBatchInterval   = 5 * time.Second
	DefaultLogBatchInterval     = 1 * time.Second
	DefaultBatchExportTimeout   = 30 * time.Second
	DefaultOverflow             = OverflowDrop
	DefaultBlockTimeout         = 100 * time.Millisecond
	DefaultSampler              = "always"
	DefaultSampleRatio          = 1.0
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultMetricsInterval      = 10 * time.Second
	DefaultMetricsTimeout       = 30 * time.Second
	DefaultMetricsTemporality   = "delta"
	DefaultPrometheusPath       = "/metrics"
	DefaultHealthCheckTimeout   = 2 * time.Second
)

// Exporter protocols.
const (
	ProtocolGRPC   = "grpc"
	ProtocolHTTP   = "http/protobuf"
	ProtocolStdout = "stdout"
)

// Queue overflow policies.
const (
	OverflowDrop  = "drop"
	OverflowBlock = "block"
)

// ApplyDefaults fills every unset field of cfg with its default value.
// Fields that are already set are left untouched.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	t := &cfg.Telemetry
	if t.ServiceName == "" {
		t.ServiceName = DefaultServiceName
	}
	if t.ShutdownTimeout == 0 {
		t.ShutdownTimeout = DefaultTelemetryShutdown
	}

	if t.Exporter.Endpoint == "" {
		t.Exporter.Endpoint = DefaultExporterEndpoint
	}
	if t.Exporter.Protocol == "" {
		t.Exporter.Protocol = DefaultExporterProtocol
	}
	if t.Exporter.Timeout == 0 {
		t.Exporter.Timeout = DefaultExporterTimeout
	}
	if t.Exporter.ProbeTimeout == 0 {
		t.Exporter.ProbeTimeout = DefaultExporterProbeTimeout
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultSampler
	}
	if t.Tracing.Sampler == DefaultSampler && t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultSampleRatio
	}
	applyBatchDefaults(&t.Tracing.Batch, DefaultTraceBatchInterval)

	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	applyBatchDefaults(&t.Logging.Batch, DefaultLogBatchInterval)

	if t.Metrics.Interval == 0 {
		t.Metrics.Interval = DefaultMetricsInterval
	}
	if t.Metrics.Timeout == 0 {
		t.Metrics.Timeout = DefaultMetricsTimeout
	}
	if t.Metrics.Temporality == "" {
		t.Metrics.Temporality = DefaultMetricsTemporality
	}
	if t.Metrics.Prometheus.Path == "" {
		t.Metrics.Prometheus.Path = DefaultPrometheusPath
	}

	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.DownstreamTimeout == 0 {
		s.DownstreamTimeout = DefaultDownstreamTimeout
	}
}

func applyBatchDefaults(b *BatchConfig, interval time.Duration) {
	if b.QueueSize == 0 {
		b.QueueSize = DefaultQueueSize
	}
	if b.MaxBatchSize == 0 {
		b.MaxBatchSize = DefaultMaxBatchSize
	}
	if b.Interval == 0 {
		b.Interval = interval
	}
	if b.ExportTimeout == 0 {
		b.ExportTimeout = DefaultBatchExportTimeout
	}
	if b.Overflow == "" {
		b.Overflow = DefaultOverflow
	}
	if b.BlockTimeout == 0 {
		b.BlockTimeout = DefaultBlockTimeout
	}
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
