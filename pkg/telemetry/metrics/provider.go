package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"demo-observe/observe/pkg/config"
)

// InstrumentationName is the meter name of the service's instruments.
const InstrumentationName = "demo-observe/observe"

// Provider owns the meter provider, its periodic reader and the optional
// Prometheus registry.
//
// The periodic reader is the background export task: it wakes every
// interval regardless of traffic, collects accumulated values and hands
// them to the exporter.
type Provider struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewProvider creates a meter provider. A non-nil exporter is wrapped in a
// periodic reader; extra readers (a manual reader in tests) are added as
// given. At least one reader must result.
func NewProvider(res *resource.Resource, exporter sdkmetric.Exporter, cfg config.MetricsConfig, readers ...sdkmetric.Reader) (*Provider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if exporter != nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = config.DefaultMetricsInterval
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = config.DefaultMetricsTimeout
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(interval),
			sdkmetric.WithTimeout(timeout),
		)))
	}

	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	var registry *prometheus.Registry
	if cfg.Prometheus.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(promExporter))
	}

	if exporter == nil && len(readers) == 0 && registry == nil {
		return nil, errors.New("meter provider needs an exporter or a reader")
	}

	return &Provider{
		provider: sdkmetric.NewMeterProvider(opts...),
		registry: registry,
	}, nil
}

// MeterProvider returns the SDK meter provider.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.provider
}

// Meter returns the meter for the service's instruments.
func (p *Provider) Meter() metric.Meter {
	return p.provider.Meter(InstrumentationName)
}

// ForceFlush collects and exports current values through every reader.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.provider.ForceFlush(ctx)
}

// Shutdown performs a final collection and export, then stops the
// background task.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint, or
// nil when the endpoint is disabled.
//
//	if h := provider.Handler(); h != nil {
//		mux.Handle(cfg.Prometheus.Path, h)
//	}
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(
		p.registry,
		promhttp.HandlerOpts{
			// Enable OpenMetrics encoding (preferred over Prometheus text format)
			EnableOpenMetrics: true,

			// Error handling
			ErrorHandling: promhttp.ContinueOnError,
		},
	)
}

// TemporalitySelector maps a configured temporality name to a selector.
// "delta" reports counters and histograms as deltas and up-down counters
// and gauges cumulatively; "cumulative" reports everything cumulatively.
func TemporalitySelector(name string) (sdkmetric.TemporalitySelector, error) {
	switch strings.ToLower(name) {
	case "", "delta":
		return deltaTemporality, nil
	case "cumulative":
		return sdkmetric.DefaultTemporalitySelector, nil
	default:
		return nil, fmt.Errorf("unknown metric temporality: %q", name)
	}
}

func deltaTemporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	switch kind {
	case sdkmetric.InstrumentKindCounter,
		sdkmetric.InstrumentKindHistogram,
		sdkmetric.InstrumentKindObservableCounter:
		return metricdata.DeltaTemporality
	default:
		return metricdata.CumulativeTemporality
	}
}
