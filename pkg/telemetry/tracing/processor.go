package tracing

import (
	"context"
	"errors"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"demo-observe/observe/pkg/telemetry/batch"
)

// BatchProcessor hands ended spans to a bounded export queue. Span
// ownership moves to the queue when the span ends; the request goroutine
// never waits on the exporter.
type BatchProcessor struct {
	exporter sdktrace.SpanExporter
	queue    *batch.Batcher[sdktrace.ReadOnlySpan]
	stopOnce sync.Once
}

var _ sdktrace.SpanProcessor = (*BatchProcessor)(nil)

// NewBatchProcessor creates a processor exporting to exporter.
func NewBatchProcessor(exporter sdktrace.SpanExporter, cfg batch.Config) *BatchProcessor {
	return &BatchProcessor{
		exporter: exporter,
		queue:    batch.New("traces", cfg, exporter.ExportSpans),
	}
}

// OnStart does nothing; spans are only of interest once they end.
func (p *BatchProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd enqueues sampled spans.
func (p *BatchProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsSampled() {
		return
	}
	p.queue.Enqueue(s)
}

// ForceFlush exports every span ended before the call.
func (p *BatchProcessor) ForceFlush(ctx context.Context) error {
	return p.queue.ForceFlush(ctx)
}

// Shutdown drains the queue and then shuts the exporter down. Only the
// first call has any effect.
func (p *BatchProcessor) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		err = errors.Join(p.queue.Shutdown(ctx), p.exporter.Shutdown(ctx))
	})
	return err
}

// Stats returns the export queue counters.
func (p *BatchProcessor) Stats() batch.Stats {
	return p.queue.Stats()
}
