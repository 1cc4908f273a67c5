package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/otel/log"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry/batch"
	"demo-observe/observe/pkg/telemetry/health"
	"demo-observe/observe/pkg/telemetry/logging"
	"demo-observe/observe/pkg/telemetry/metrics"
	"demo-observe/observe/pkg/telemetry/tracing"
)

// Signal names a telemetry pipeline.
type Signal string

const (
	SignalTraces  Signal = "traces"
	SignalLogs    Signal = "logs"
	SignalMetrics Signal = "metrics"
)

// Signals lists every pipeline in bootstrap and shutdown order.
var Signals = []Signal{SignalTraces, SignalLogs, SignalMetrics}

// Telemetry owns the three providers of the process and is passed
// explicitly to everything that records telemetry. No OpenTelemetry global
// is set.
type Telemetry struct {
	cfg        config.TelemetryConfig
	opts       options
	propagator *tracing.Propagator

	mu          sync.RWMutex
	probed      bool
	traces      *tracing.Provider
	logs        *logging.Provider
	metrics     *metrics.Provider
	instruments *metrics.Instruments

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewUninitialized validates cfg and builds the shared resource without
// starting any pipeline. Each pipeline is started by Init.
func NewUninitialized(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (*Telemetry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.stdout == nil {
		o.stdout = os.Stdout
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "telemetry")

	if errs := config.ValidateTelemetry(&cfg); len(errs) > 0 {
		return nil, &BootstrapError{Err: config.ValidationError{Errors: errs}}
	}

	if o.resource == nil {
		res, err := NewResource(ctx, cfg)
		if err != nil {
			return nil, &BootstrapError{Err: err}
		}
		o.resource = res
	}

	return &Telemetry{
		cfg:        cfg,
		opts:       o,
		propagator: tracing.DefaultPropagator(),
	}, nil
}

// New builds every pipeline in the order traces, logs, metrics. If one
// fails, the ones already built are shut down before the error is
// returned.
func New(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (*Telemetry, error) {
	t, err := NewUninitialized(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	for _, s := range Signals {
		if err := t.Init(ctx, s); err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
			_ = t.Shutdown(shutdownCtx)
			cancel()
			return nil, err
		}
	}

	return t, nil
}

// Init starts the pipeline for one signal. A second call for the same
// signal returns ErrAlreadyInitialized.
func (t *Telemetry) Init(ctx context.Context, s Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized(s) {
		return &BootstrapError{Signal: s, Err: ErrAlreadyInitialized}
	}

	if err := t.probe(ctx, s); err != nil {
		return &BootstrapError{Signal: s, Err: err}
	}

	var err error
	switch s {
	case SignalTraces:
		err = t.initTraces(ctx)
	case SignalLogs:
		err = t.initLogs(ctx)
	case SignalMetrics:
		err = t.initMetrics(ctx)
	default:
		err = fmt.Errorf("unknown signal %q", s)
	}
	if err != nil {
		return &BootstrapError{Signal: s, Err: err}
	}

	t.opts.logger.Debug("telemetry pipeline started",
		"signal", string(s),
		"protocol", t.cfg.Exporter.Protocol,
	)
	return nil
}

func (t *Telemetry) initialized(s Signal) bool {
	switch s {
	case SignalTraces:
		return t.traces != nil
	case SignalLogs:
		return t.logs != nil
	case SignalMetrics:
		return t.metrics != nil
	}
	return false
}

// probe checks once that the collector endpoint accepts connections. It
// is skipped for the stdout protocol and for signals whose exporter was
// injected.
func (t *Telemetry) probe(ctx context.Context, s Signal) error {
	ec := t.cfg.Exporter
	if t.probed || ec.SkipProbe || ec.Protocol == config.ProtocolStdout || t.injected(s) {
		return nil
	}
	if err := health.ProbeEndpoint(ctx, ec.Endpoint, ec.ProbeTimeout); err != nil {
		return err
	}
	t.probed = true
	return nil
}

func (t *Telemetry) injected(s Signal) bool {
	switch s {
	case SignalTraces:
		return t.opts.spanExporter != nil
	case SignalLogs:
		return t.opts.logExporter != nil
	case SignalMetrics:
		return t.opts.metricExporter != nil
	}
	return false
}

func (t *Telemetry) initTraces(ctx context.Context) error {
	exporter := t.opts.spanExporter
	if exporter == nil {
		var err error
		exporter, err = newSpanExporter(ctx, t.cfg, t.opts.stdout)
		if err != nil {
			return err
		}
	}

	p, err := tracing.NewProvider(t.opts.resource, exporter, t.cfg.Tracing, t.opts.logger)
	if err != nil {
		return errors.Join(err, exporter.Shutdown(ctx))
	}
	t.traces = p
	return nil
}

func (t *Telemetry) initLogs(ctx context.Context) error {
	exporter := t.opts.logExporter
	if exporter == nil {
		var err error
		exporter, err = newLogExporter(ctx, t.cfg, t.opts.stdout)
		if err != nil {
			return err
		}
	}

	p, err := logging.NewProvider(t.opts.resource, exporter, t.cfg.Logging, t.opts.logger)
	if err != nil {
		return errors.Join(err, exporter.Shutdown(ctx))
	}
	t.logs = p
	return nil
}

func (t *Telemetry) initMetrics(ctx context.Context) error {
	exporter := t.opts.metricExporter
	if exporter == nil {
		var err error
		exporter, err = newMetricExporter(ctx, t.cfg, t.opts.stdout)
		if err != nil {
			return err
		}
	}

	p, err := metrics.NewProvider(t.opts.resource, exporter, t.cfg.Metrics, t.opts.metricReaders...)
	if err != nil {
		return errors.Join(err, exporter.Shutdown(ctx))
	}

	inst, err := metrics.NewInstruments(p.Meter(), t.Stats)
	if err != nil {
		return errors.Join(err, p.Shutdown(ctx))
	}

	t.metrics = p
	t.instruments = inst
	return nil
}

// Config returns the configuration the providers were built from.
func (t *Telemetry) Config() config.TelemetryConfig {
	return t.cfg
}

// Logger returns the logger of the export pipelines.
func (t *Telemetry) Logger() *slog.Logger {
	return t.opts.logger
}

// Propagator returns the composite header propagator.
func (t *Telemetry) Propagator() *tracing.Propagator {
	return t.propagator
}

// TracerProvider returns the trace provider, or a no-op provider before
// the traces pipeline is initialized.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.traces == nil {
		return tracenoop.NewTracerProvider()
	}
	return t.traces.TracerProvider()
}

// Tracer returns the tracer used for server spans.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.TracerProvider().Tracer(tracing.InstrumentationName)
}

// LoggerProvider returns the log provider, or a no-op provider before the
// logs pipeline is initialized.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.logs == nil {
		return lognoop.NewLoggerProvider()
	}
	return t.logs.LoggerProvider()
}

// MeterProvider returns the meter provider, or a no-op provider before
// the metrics pipeline is initialized.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.metrics == nil {
		return metricnoop.NewMeterProvider()
	}
	return t.metrics.MeterProvider()
}

// Instruments returns the request instruments, nil before the metrics
// pipeline is initialized.
func (t *Telemetry) Instruments() *metrics.Instruments {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.instruments
}

// MetricsHandler returns the Prometheus scrape handler, nil when the pull
// endpoint is disabled.
func (t *Telemetry) MetricsHandler() http.Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.metrics == nil {
		return nil
	}
	return t.metrics.Handler()
}

// Stats returns the export queue counters of the initialized batched
// pipelines, keyed by signal.
func (t *Telemetry) Stats() map[string]batch.Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make(map[string]batch.Stats, 2)
	if t.traces != nil {
		stats[string(SignalTraces)] = t.traces.Stats()
	}
	if t.logs != nil {
		stats[string(SignalLogs)] = t.logs.Stats()
	}
	return stats
}

// pipelines is a snapshot of the providers. Flushes run on a snapshot so
// that metric callbacks reading Stats never wait on t.mu.
type pipelines struct {
	traces      *tracing.Provider
	logs        *logging.Provider
	metrics     *metrics.Provider
	instruments *metrics.Instruments
}

func (t *Telemetry) snapshot() pipelines {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return pipelines{
		traces:      t.traces,
		logs:        t.logs,
		metrics:     t.metrics,
		instruments: t.instruments,
	}
}

// ForceFlush exports everything recorded so far on every pipeline.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	p := t.snapshot()

	var errs []error
	if p.traces != nil {
		errs = append(errs, p.traces.ForceFlush(ctx))
	}
	if p.logs != nil {
		errs = append(errs, p.logs.ForceFlush(ctx))
	}
	if p.metrics != nil {
		errs = append(errs, p.metrics.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops the pipelines in the order traces, logs,
// metrics. Each gets its own budget of cfg.ShutdownTimeout; a pipeline
// that runs out is reported and the next one still runs. Only the first
// call has any effect; later calls return its result.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		t.shutdownErr = t.shutdown(ctx)
	})
	return t.shutdownErr
}

func (t *Telemetry) shutdown(ctx context.Context) error {
	p := t.snapshot()

	steps := []struct {
		signal Signal
		run    func(context.Context) error
	}{
		{SignalTraces, nil},
		{SignalLogs, nil},
		{SignalMetrics, nil},
	}
	if p.traces != nil {
		steps[0].run = p.traces.Shutdown
	}
	if p.logs != nil {
		steps[1].run = p.logs.Shutdown
	}
	if p.metrics != nil {
		steps[2].run = func(ctx context.Context) error {
			// The final collection still reports the queue counters.
			err := p.metrics.Shutdown(ctx)
			if p.instruments != nil {
				err = errors.Join(err, p.instruments.Close())
			}
			return err
		}
	}

	failed := make(map[Signal]error)
	for _, step := range steps {
		if step.run == nil {
			continue
		}

		stepCtx, cancel := context.WithTimeout(ctx, t.cfg.ShutdownTimeout)
		err := step.run(stepCtx)
		cancel()

		switch {
		case err == nil:
			t.opts.logger.Debug("telemetry pipeline stopped", "signal", string(step.signal))
		case errors.Is(err, context.DeadlineExceeded):
			t.opts.logger.Warn("telemetry flush timed out",
				"signal", string(step.signal),
				"timeout", t.cfg.ShutdownTimeout,
			)
			failed[step.signal] = err
		default:
			t.opts.logger.Error("telemetry shutdown failed",
				"signal", string(step.signal),
				"error", err,
			)
			failed[step.signal] = err
		}
	}

	if len(failed) > 0 {
		return &ShutdownError{Errors: failed}
	}
	return nil
}
