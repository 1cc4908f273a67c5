package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, ValidateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validLogLevels lists the accepted minimum severities, lower-cased.
var validLogLevels = map[string]bool{
	"trace":   true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range 0-65535", cfg.Port),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	if cfg.DownstreamTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.downstream_timeout",
			Message: "downstream timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be between 0 and 10MB",
		})
	}

	return errs
}

// ValidateTelemetry validates the telemetry section on its own. Bootstrap
// calls it directly so that a hand-built TelemetryConfig is held to the
// same rules as a loaded one.
func ValidateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if cfg.ServiceName == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.service_name",
			Message: "service name is required",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	errs = append(errs, validateExporter(&cfg.Exporter)...)

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	errs = append(errs, validateBatch("telemetry.tracing.batch", &cfg.Tracing.Batch)...)

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'trace', 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text", "none":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'none'", cfg.Logging.Format),
		})
	}
	errs = append(errs, validateBatch("telemetry.logging.batch", &cfg.Logging.Batch)...)

	if cfg.Metrics.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.interval",
			Message: "metrics interval must be positive",
		})
	}
	if cfg.Metrics.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.timeout",
			Message: "metrics timeout must be positive",
		})
	}
	switch cfg.Metrics.Temporality {
	case "delta", "cumulative":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.temporality",
			Message: fmt.Sprintf("invalid temporality %q: must be 'delta' or 'cumulative'", cfg.Metrics.Temporality),
		})
	}
	if cfg.Metrics.Prometheus.Enabled && !strings.HasPrefix(cfg.Metrics.Prometheus.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.prometheus.path",
			Message: "prometheus path must start with '/'",
		})
	}

	if cfg.Health.CheckTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}

	if cfg.StatsSchedule != "" {
		if _, err := cron.ParseStandard(cfg.StatsSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.stats_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.StatsSchedule, err),
			})
		}
	}

	return errs
}

func validateExporter(cfg *ExporterConfig) []FieldError {
	var errs []FieldError

	switch cfg.Protocol {
	case ProtocolGRPC, ProtocolHTTP:
		if err := ValidateEndpoint(cfg.Endpoint); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.exporter.endpoint",
				Message: err.Error(),
			})
		}
	case ProtocolStdout:
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.exporter.protocol",
			Message: fmt.Sprintf("invalid protocol %q: must be '%s', '%s', or '%s'", cfg.Protocol, ProtocolGRPC, ProtocolHTTP, ProtocolStdout),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.exporter.timeout",
			Message: "exporter timeout must be positive",
		})
	}
	if !cfg.SkipProbe && cfg.ProbeTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.exporter.probe_timeout",
			Message: "probe timeout must be positive",
		})
	}

	return errs
}

// ValidateEndpoint reports whether endpoint is an absolute http or https URL
// with a host.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("malformed endpoint URL %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint URL %q must use http or https", endpoint)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("endpoint URL %q has no host", endpoint)
	}
	return nil
}

func validateBatch(prefix string, cfg *BatchConfig) []FieldError {
	var errs []FieldError

	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".queue_size",
			Message: "queue size must be positive",
		})
	}
	if cfg.MaxBatchSize <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_batch_size",
			Message: "max batch size must be positive",
		})
	} else if cfg.QueueSize > 0 && cfg.MaxBatchSize > cfg.QueueSize {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_batch_size",
			Message: fmt.Sprintf("max batch size %d exceeds queue size %d", cfg.MaxBatchSize, cfg.QueueSize),
		})
	}
	if cfg.Interval <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".interval",
			Message: "interval must be positive",
		})
	}
	if cfg.ExportTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".export_timeout",
			Message: "export timeout must be positive",
		})
	}
	switch cfg.Overflow {
	case OverflowDrop:
	case OverflowBlock:
		if cfg.BlockTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".block_timeout",
				Message: "block timeout must be positive with the block policy",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   prefix + ".overflow",
			Message: fmt.Sprintf("invalid overflow policy %q: must be '%s' or '%s'", cfg.Overflow, OverflowDrop, OverflowBlock),
		})
	}

	return errs
}
