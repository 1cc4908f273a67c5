package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// An empty path yields the default configuration. The configuration is not
// modified by environment variables; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (if a path is given)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// otelEnv holds the standard OpenTelemetry SDK variables honoured by the
// service. Unset variables stay nil so that file values survive.
type otelEnv struct {
	Endpoint       *string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Protocol       *string  `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL"`
	TimeoutMillis  *int     `envconfig:"OTEL_EXPORTER_OTLP_TIMEOUT"`
	ServiceName    *string  `envconfig:"OTEL_SERVICE_NAME"`
	LogLevel       *string  `envconfig:"OTEL_LOG_LEVEL"`
	MetricInterval *int     `envconfig:"OTEL_METRIC_EXPORT_INTERVAL"`
	Sampler        *string  `envconfig:"OTEL_TRACES_SAMPLER"`
	SamplerArg     *float64 `envconfig:"OTEL_TRACES_SAMPLER_ARG"`
}

// serviceEnv holds the DEMO_ prefixed server settings.
type serviceEnv struct {
	Host *string
	Port *int
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// A variable that is set but cannot be parsed is an error.
func applyEnvOverrides(cfg *Config) error {
	var oe otelEnv
	if err := envconfig.Process("", &oe); err != nil {
		return fmt.Errorf("failed to read OTEL_ environment: %w", err)
	}

	var se serviceEnv
	if err := envconfig.Process("demo", &se); err != nil {
		return fmt.Errorf("failed to read DEMO_ environment: %w", err)
	}

	if se.Host != nil {
		cfg.Server.Host = *se.Host
	}
	if se.Port != nil {
		cfg.Server.Port = *se.Port
	}

	t := &cfg.Telemetry
	if oe.Endpoint != nil {
		t.Exporter.Endpoint = *oe.Endpoint
	}
	if oe.Protocol != nil {
		t.Exporter.Protocol = *oe.Protocol
	}
	if oe.TimeoutMillis != nil {
		t.Exporter.Timeout = time.Duration(*oe.TimeoutMillis) * time.Millisecond
	}
	if oe.ServiceName != nil {
		t.ServiceName = *oe.ServiceName
	}
	if oe.LogLevel != nil {
		t.Logging.Level = *oe.LogLevel
	}
	if oe.MetricInterval != nil {
		t.Metrics.Interval = time.Duration(*oe.MetricInterval) * time.Millisecond
	}
	if oe.Sampler != nil {
		t.Tracing.Sampler = samplerFromEnv(*oe.Sampler)
	}
	if oe.SamplerArg != nil {
		t.Tracing.SampleRatio = *oe.SamplerArg
	}

	return nil
}

// samplerFromEnv maps OTEL_TRACES_SAMPLER names onto sampler strategies.
// Names the service does not know are passed through so that validation
// reports them.
func samplerFromEnv(name string) string {
	switch name {
	case "always_on", "parentbased_always_on":
		return "always"
	case "always_off", "parentbased_always_off":
		return "never"
	case "traceidratio", "parentbased_traceidratio":
		return "ratio"
	default:
		return name
	}
}
