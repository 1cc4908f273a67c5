package tracing

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// NewTransport wraps base so every outbound request gets a client span and
// carries the active context in its headers. A nil base uses
// http.DefaultTransport. A nil meter provider disables client metrics.
func NewTransport(base http.RoundTripper, tp trace.TracerProvider, mp metric.MeterProvider, p *Propagator) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	opts := []otelhttp.Option{
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(p.TextMap()),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return SpanName(r)
		}),
	}
	if mp != nil {
		opts = append(opts, otelhttp.WithMeterProvider(mp))
	}

	return otelhttp.NewTransport(base, opts...)
}

// NewClient returns an HTTP client whose requests propagate the active
// context of the request they are made with.
//
//	req, _ := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
//	resp, err := client.Do(req)
func NewClient(timeout time.Duration, tp trace.TracerProvider, mp metric.MeterProvider, p *Propagator) *http.Client {
	return &http.Client{
		Transport: NewTransport(nil, tp, mp, p),
		Timeout:   timeout,
	}
}
