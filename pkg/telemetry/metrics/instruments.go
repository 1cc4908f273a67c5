package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"demo-observe/observe/pkg/telemetry/batch"
)

// Instrument names.
const (
	RequestCountName    = "http.server.request.count"
	ErrorCountName      = "http.server.error.count"
	RequestDurationName = "http.server.request.duration"
	ExportDroppedName   = "telemetry.export.dropped"
	ExportQueuedName    = "telemetry.export.queued"
)

// maxRoutes bounds the number of distinct url.path values reported.
const maxRoutes = 100

// durationBuckets are request latency boundaries in seconds.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// StatsFunc reports export queue counters keyed by signal name.
type StatsFunc func() map[string]batch.Stats

// Instruments is the fixed set of instruments recorded by the service.
// It is created once per meter.
type Instruments struct {
	requestCount    metric.Int64Counter
	errorCount      metric.Int64Counter
	requestDuration metric.Float64Histogram
	routes          *CardinalityLimiter
	registration    metric.Registration
}

// NewInstruments registers the instruments on meter. When stats is non-nil
// the export queue counters are observed on every collection.
func NewInstruments(meter metric.Meter, stats StatsFunc) (*Instruments, error) {
	inst := &Instruments{routes: NewCardinalityLimiter(maxRoutes)}

	var err error
	inst.requestCount, err = meter.Int64Counter(RequestCountName,
		metric.WithDescription("Number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", RequestCountName, err)
	}

	inst.errorCount, err = meter.Int64Counter(ErrorCountName,
		metric.WithDescription("Number of HTTP requests answered with a 5xx status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", ErrorCountName, err)
	}

	inst.requestDuration, err = meter.Float64Histogram(RequestDurationName,
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", RequestDurationName, err)
	}

	if stats != nil {
		if err := inst.observeQueues(meter, stats); err != nil {
			return nil, err
		}
	}

	return inst, nil
}

func (inst *Instruments) observeQueues(meter metric.Meter, stats StatsFunc) error {
	dropped, err := meter.Int64ObservableCounter(ExportDroppedName,
		metric.WithDescription("Telemetry records lost to a full queue, shutdown or export failure"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ExportDroppedName, err)
	}

	queued, err := meter.Int64ObservableGauge(ExportQueuedName,
		metric.WithDescription("Telemetry records waiting in an export queue"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ExportQueuedName, err)
	}

	inst.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for signal, s := range stats() {
			attrs := metric.WithAttributes(attribute.String("signal", signal))
			o.ObserveInt64(dropped, int64(s.Dropped+s.Failed), attrs)
			o.ObserveInt64(queued, int64(s.Queued), attrs)
		}
		return nil
	}, dropped, queued)
	if err != nil {
		return fmt.Errorf("failed to register export queue callback: %w", err)
	}
	return nil
}

// RecordRequest records one served request.
func (inst *Instruments) RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	path = inst.routes.Normalize(path)

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("http.response.status_code", strconv.Itoa(status)),
	)

	inst.requestCount.Add(ctx, 1, attrs)
	inst.requestDuration.Record(ctx, duration.Seconds(), attrs)
	if status >= http.StatusInternalServerError {
		inst.errorCount.Add(ctx, 1, attrs)
	}
}

// Close unregisters the export queue callback.
func (inst *Instruments) Close() error {
	if inst.registration == nil {
		return nil
	}
	return inst.registration.Unregister()
}
