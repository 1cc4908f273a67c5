package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry/batch"
)

// InstrumentationName identifies spans produced by this module.
const InstrumentationName = "demo-observe/observe"

// Provider owns the tracer provider, the batch processor feeding its
// exporter and the tracer handed to instrumentation.
type Provider struct {
	provider  *sdktrace.TracerProvider
	processor *BatchProcessor
	tracer    trace.Tracer
}

// NewProvider creates a trace provider exporting through exporter.
//
// The provider must be shut down when no longer needed:
//
//	defer p.Shutdown(ctx)
func NewProvider(res *resource.Resource, exporter sdktrace.SpanExporter, cfg config.TracingConfig, logger *slog.Logger) (*Provider, error) {
	if exporter == nil {
		return nil, errors.New("span exporter is nil")
	}

	sampler, err := NewSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	bcfg := batch.FromConfig(cfg.Batch)
	bcfg.Logger = logger
	processor := NewBatchProcessor(exporter, bcfg)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	return &Provider{
		provider:  tp,
		processor: processor,
		tracer:    tp.Tracer(InstrumentationName),
	}, nil
}

// TracerProvider returns the SDK tracer provider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.provider
}

// Tracer returns the tracer used by the span middleware.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// ForceFlush exports every span ended before the call.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.provider.ForceFlush(ctx)
}

// Shutdown flushes pending spans and shuts the exporter down. Only the
// processor is stopped: the SDK provider would unregister it, and spans
// ending afterwards must still reach the closed queue to be counted as
// dropped.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.processor.Shutdown(ctx)
}

// Stats returns the span export queue counters.
func (p *Provider) Stats() batch.Stats {
	return p.processor.Stats()
}

// SpanContext returns the span context from the given context.
// Returns an invalid span context if no span exists.
func SpanContext(ctx context.Context) trace.SpanContext {
	return trace.SpanFromContext(ctx).SpanContext()
}

// TraceID returns the trace ID from the context as a string.
// Returns empty string if no trace context exists.
func TraceID(ctx context.Context) string {
	sc := SpanContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanID returns the span ID from the context as a string.
// Returns empty string if no span context exists.
func SpanID(ctx context.Context) string {
	sc := SpanContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
