package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry/metrics"
)

// target is the parsed collector endpoint shared by every exporter.
type target struct {
	host     string
	insecure bool
}

func parseTarget(cfg config.ExporterConfig) (target, error) {
	if err := config.ValidateEndpoint(cfg.Endpoint); err != nil {
		return target{}, err
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return target{}, err
	}
	return target{host: u.Host, insecure: u.Scheme == "http"}, nil
}

func userAgent(version string) grpc.DialOption {
	if version == "" {
		version = DefaultServiceVersion
	}
	return grpc.WithUserAgent("observe/" + version)
}

// newSpanExporter builds the span exporter selected by cfg.Protocol.
func newSpanExporter(ctx context.Context, cfg config.TelemetryConfig, stdout io.Writer) (sdktrace.SpanExporter, error) {
	ec := cfg.Exporter
	if ec.Protocol == config.ProtocolStdout {
		return stdouttrace.New(stdouttrace.WithWriter(stdout))
	}

	t, err := parseTarget(ec)
	if err != nil {
		return nil, err
	}

	var client otlptrace.Client
	switch ec.Protocol {
	case config.ProtocolGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(t.host),
			otlptracegrpc.WithTimeout(ec.Timeout),
			otlptracegrpc.WithHeaders(ec.Headers),
			otlptracegrpc.WithDialOption(userAgent(cfg.ServiceVersion)),
		}
		if t.insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		client = otlptracegrpc.NewClient(opts...)
	case config.ProtocolHTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(t.host),
			otlptracehttp.WithTimeout(ec.Timeout),
			otlptracehttp.WithHeaders(ec.Headers),
		}
		if t.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter protocol: %s", ec.Protocol)
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP span exporter: %w", err)
	}
	return exporter, nil
}

// newLogExporter builds the log exporter selected by cfg.Protocol.
func newLogExporter(ctx context.Context, cfg config.TelemetryConfig, stdout io.Writer) (sdklog.Exporter, error) {
	ec := cfg.Exporter
	if ec.Protocol == config.ProtocolStdout {
		return stdoutlog.New(stdoutlog.WithWriter(stdout))
	}

	t, err := parseTarget(ec)
	if err != nil {
		return nil, err
	}

	switch ec.Protocol {
	case config.ProtocolGRPC:
		opts := []otlploggrpc.Option{
			otlploggrpc.WithEndpoint(t.host),
			otlploggrpc.WithTimeout(ec.Timeout),
			otlploggrpc.WithHeaders(ec.Headers),
			otlploggrpc.WithDialOption(userAgent(cfg.ServiceVersion)),
		}
		if t.insecure {
			opts = append(opts, otlploggrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		return otlploggrpc.New(ctx, opts...)
	case config.ProtocolHTTP:
		opts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(t.host),
			otlploghttp.WithTimeout(ec.Timeout),
			otlploghttp.WithHeaders(ec.Headers),
		}
		if t.insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		return otlploghttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter protocol: %s", ec.Protocol)
	}
}

// newMetricExporter builds the metric exporter selected by cfg.Protocol,
// pushing with the configured temporality.
func newMetricExporter(ctx context.Context, cfg config.TelemetryConfig, stdout io.Writer) (sdkmetric.Exporter, error) {
	ec := cfg.Exporter
	temporality, err := metrics.TemporalitySelector(cfg.Metrics.Temporality)
	if err != nil {
		return nil, err
	}

	if ec.Protocol == config.ProtocolStdout {
		return stdoutmetric.New(
			stdoutmetric.WithWriter(stdout),
			stdoutmetric.WithTemporalitySelector(temporality),
		)
	}

	t, err := parseTarget(ec)
	if err != nil {
		return nil, err
	}

	switch ec.Protocol {
	case config.ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(t.host),
			otlpmetricgrpc.WithTimeout(ec.Timeout),
			otlpmetricgrpc.WithHeaders(ec.Headers),
			otlpmetricgrpc.WithTemporalitySelector(temporality),
			otlpmetricgrpc.WithDialOption(userAgent(cfg.ServiceVersion)),
		}
		if t.insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case config.ProtocolHTTP:
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(t.host),
			otlpmetrichttp.WithTimeout(ec.Timeout),
			otlpmetrichttp.WithHeaders(ec.Headers),
			otlpmetrichttp.WithTemporalitySelector(temporality),
		}
		if t.insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter protocol: %s", ec.Protocol)
	}
}
