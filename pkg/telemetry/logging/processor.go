package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry/batch"
)

// Processor hands emitted log records to a bounded export queue.
type Processor struct {
	exporter sdklog.Exporter
	queue    *batch.Batcher[sdklog.Record]
	stopOnce sync.Once
}

var _ sdklog.Processor = (*Processor)(nil)

// NewProcessor creates a processor exporting to exporter.
func NewProcessor(exporter sdklog.Exporter, cfg batch.Config) *Processor {
	return &Processor{
		exporter: exporter,
		queue:    batch.New("logs", cfg, exporter.Export),
	}
}

// OnEmit enqueues a copy of record. The record itself is reused by the
// SDK once OnEmit returns.
func (p *Processor) OnEmit(_ context.Context, record *sdklog.Record) error {
	p.queue.Enqueue(record.Clone())
	return nil
}

// ForceFlush exports every record emitted before the call.
func (p *Processor) ForceFlush(ctx context.Context) error {
	return errors.Join(p.queue.ForceFlush(ctx), p.exporter.ForceFlush(ctx))
}

// Shutdown drains the queue and then shuts the exporter down. Only the
// first call has any effect.
func (p *Processor) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		err = errors.Join(p.queue.Shutdown(ctx), p.exporter.Shutdown(ctx))
	})
	return err
}

// Stats returns the export queue counters.
func (p *Processor) Stats() batch.Stats {
	return p.queue.Stats()
}

// Provider owns the logger provider and the processor feeding its
// exporter.
type Provider struct {
	provider  *sdklog.LoggerProvider
	processor *Processor
}

// NewProvider creates a logger provider exporting through exporter.
func NewProvider(res *resource.Resource, exporter sdklog.Exporter, cfg config.LoggingConfig, logger *slog.Logger) (*Provider, error) {
	if exporter == nil {
		return nil, errors.New("log exporter is nil")
	}

	bcfg := batch.FromConfig(cfg.Batch)
	if cfg.Batch.Interval <= 0 {
		bcfg.Interval = config.DefaultLogBatchInterval
	}
	bcfg.Logger = logger
	processor := NewProcessor(exporter, bcfg)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	)

	return &Provider{provider: lp, processor: processor}, nil
}

// LoggerProvider returns the SDK logger provider.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.provider
}

// ForceFlush exports every record emitted before the call.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.provider.ForceFlush(ctx)
}

// Shutdown flushes pending records and shuts the exporter down.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Stats returns the log export queue counters.
func (p *Provider) Stats() batch.Stats {
	return p.processor.Stats()
}
