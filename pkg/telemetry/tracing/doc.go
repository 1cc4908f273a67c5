// Package tracing provides request tracing for the observe service.
//
// # Overview
//
// The package owns the trace half of the telemetry bootstrap: the tracer
// provider and its bounded export queue, the composite propagator that
// reads and writes W3C Trace Context and Baggage headers, and the HTTP
// middleware that opens one server span per inbound request.
//
// # Trace Context Propagation
//
// A Propagator is built from header handlers that each own a disjoint set
// of headers. The default composite is the W3C trace-context handler
// followed by the W3C baggage handler:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//	baggage: tenant=acme,region=eu-west-1
//
// Extraction produces a TelemetryContext. Injecting that context into an
// empty carrier and extracting it again yields an equal context.
//
// # Server Spans
//
// Middleware asks a SpanBuilder for the span of each request. The default
// builder names spans "{method} {path}" and parents them to the extracted
// context, so a request without trace headers starts a new trace:
//
//	builder := &tracing.DefaultSpanBuilder{
//	    Tracer:     provider.Tracer(),
//	    Propagator: propagator,
//	}
//	handler = tracing.Middleware(builder)(handler)
//
// Responses with a status of 500 or above mark the span as Error. The span
// is ended on every exit path, including a panicking handler.
//
// # Outbound Requests
//
// NewClient returns an HTTP client that opens a client span per request and
// injects the active context into the request headers:
//
//	client := tracing.NewClient(5*time.Second, tp, mp, propagator)
//	req, _ := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
//	resp, err := client.Do(req)
//
// # Sampling Strategies
//
// Three sampling strategies are supported, each wrapped in ParentBased:
//   - always: Sample all traces (development/debugging)
//   - never: Sample no traces
//   - ratio: Sample a percentage of traces (production)
//
// # Export
//
// Ended spans go through a BatchProcessor, a bounded queue drained by a
// single goroutine. A full queue drops spans rather than blocking the
// request path, unless the blocking overflow policy is configured:
//
//	telemetry:
//	  tracing:
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    batch:
//	      queue_size: 2048
//	      max_batch_size: 512
//	      interval: 5s
//	      overflow: drop
package tracing
