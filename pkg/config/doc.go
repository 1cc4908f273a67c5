// Package config provides configuration management for the observe service.
//
// Configuration is read from an optional YAML file, completed with defaults,
// overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("observe.yaml")
//
// # Environment Variable Overrides
//
// The standard OpenTelemetry SDK variables are honoured:
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT overrides telemetry.exporter.endpoint
//   - OTEL_EXPORTER_OTLP_PROTOCOL overrides telemetry.exporter.protocol
//   - OTEL_EXPORTER_OTLP_TIMEOUT (milliseconds) overrides telemetry.exporter.timeout
//   - OTEL_SERVICE_NAME overrides telemetry.service_name
//   - OTEL_LOG_LEVEL overrides telemetry.logging.level
//   - OTEL_METRIC_EXPORT_INTERVAL (milliseconds) overrides telemetry.metrics.interval
//   - OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG override the sampler
//
// The listener is controlled by DEMO_HOST and DEMO_PORT.
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//
//  1. Defaults
//  2. YAML file
//  3. Environment variables
//  4. Command line flags (applied by the CLI)
//
// # Hot Reload
//
// Watcher re-reads the file on change. The service applies the minimum log
// severity from a reloaded configuration without restarting; every other
// field requires a restart.
package config
