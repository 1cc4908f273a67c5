package telemetry

import (
	"io"
	"log/slog"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes a Telemetry.
type Option func(*options)

type options struct {
	spanExporter   sdktrace.SpanExporter
	logExporter    sdklog.Exporter
	metricExporter sdkmetric.Exporter
	metricReaders  []sdkmetric.Reader
	resource       *resource.Resource
	stdout         io.Writer
	logger         *slog.Logger
}

// WithSpanExporter replaces the configured span exporter.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(o *options) { o.spanExporter = e }
}

// WithLogExporter replaces the configured log exporter.
func WithLogExporter(e sdklog.Exporter) Option {
	return func(o *options) { o.logExporter = e }
}

// WithMetricExporter replaces the configured metric exporter.
func WithMetricExporter(e sdkmetric.Exporter) Option {
	return func(o *options) { o.metricExporter = e }
}

// WithMetricReader adds a reader next to the periodic one.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.metricReaders = append(o.metricReaders, r) }
}

// WithResource replaces the detected resource.
func WithResource(r *resource.Resource) Option {
	return func(o *options) { o.resource = r }
}

// WithStdoutWriter sets where the stdout exporters write.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithLogger sets the logger used by the export pipelines and by
// shutdown. It must not write to the log pipeline itself.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
