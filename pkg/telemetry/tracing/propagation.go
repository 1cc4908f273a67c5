package tracing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// W3C Trace Context Propagation
//
// Trace context crosses process boundaries in three headers:
//
// traceparent: version-trace_id-parent_id-trace_flags
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// tracestate: vendor-specific entries
// Example: congo=t61rcWkgMzE,rojo=00f067aa0ba902b7
//
// baggage: application key/value pairs
// Example: tenant=acme,region=eu-west-1
//
// # Example Flow
//
// Service A calls Service B with header:
//   traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// Service B extracts context, creates child span:
//   trace_id: 4bf92f3577b34da6a3ce929d0e0e4736 (same)
//   parent_id: 00f067aa0ba902b7 (from Service A)
//   span_id: 5e107e4a0ba902c8 (new)

// ErrHeaderCollision is returned when two handlers of a Propagator declare
// the same header.
var ErrHeaderCollision = errors.New("propagator header collision")

// Propagator is a composite of header handlers. Each handler owns a
// disjoint set of headers. Extraction merges what every handler finds;
// injection lets every handler write its own headers.
type Propagator struct {
	handlers []propagation.TextMapPropagator
	fields   []string
}

// NewPropagator builds a composite from handlers, applied in the given
// order. It fails when two handlers declare the same header.
func NewPropagator(handlers ...propagation.TextMapPropagator) (*Propagator, error) {
	if len(handlers) == 0 {
		return nil, errors.New("propagator needs at least one handler")
	}

	owner := make(map[string]int)
	var fields []string
	for i, h := range handlers {
		for _, f := range h.Fields() {
			key := strings.ToLower(f)
			if j, ok := owner[key]; ok {
				return nil, fmt.Errorf("%w: %q is declared by handler %d and handler %d", ErrHeaderCollision, f, j, i)
			}
			owner[key] = i
			fields = append(fields, f)
		}
	}

	return &Propagator{handlers: handlers, fields: fields}, nil
}

// DefaultPropagator returns the W3C trace-context handler followed by the
// W3C baggage handler.
func DefaultPropagator() *Propagator {
	p, err := NewPropagator(propagation.TraceContext{}, propagation.Baggage{})
	if err != nil {
		panic(err)
	}
	return p
}

// Fields returns every header written by the composite.
func (p *Propagator) Fields() []string {
	return append([]string(nil), p.fields...)
}

// Extract reads carrier with every handler. The span identity comes from
// the W3C trace-context handler only; baggage members are unioned, later
// handlers overriding earlier ones on the same key. A member that would
// make the union invalid is skipped and the rest are kept. A carrier with
// no recognised headers yields an invalid context, which starts a new
// trace downstream.
func (p *Propagator) Extract(carrier propagation.TextMapCarrier) TelemetryContext {
	var sc trace.SpanContext
	var bag baggage.Baggage

	for _, h := range p.handlers {
		ctx := h.Extract(context.Background(), carrier)

		if isTraceContext(h) {
			if found := trace.SpanContextFromContext(ctx); found.IsValid() {
				sc = found
			}
		}

		for _, m := range baggage.FromContext(ctx).Members() {
			if next, err := bag.SetMember(m); err == nil {
				bag = next
			}
		}
	}

	return TelemetryContext{spanContext: sc, baggage: bag}
}

func isTraceContext(h propagation.TextMapPropagator) bool {
	switch h.(type) {
	case propagation.TraceContext, *propagation.TraceContext:
		return true
	}
	return false
}

// Inject writes tc into carrier through every handler.
func (p *Propagator) Inject(tc TelemetryContext, carrier propagation.TextMapCarrier) {
	p.InjectContext(tc.Context(context.Background()), carrier)
}

// ExtractContext returns ctx carrying the context extracted from carrier.
func (p *Propagator) ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return p.Extract(carrier).Context(ctx)
}

// InjectContext writes the active span and baggage of ctx into carrier.
func (p *Propagator) InjectContext(ctx context.Context, carrier propagation.TextMapCarrier) {
	for _, h := range p.handlers {
		h.Inject(ctx, carrier)
	}
}

// TextMap adapts p to the OpenTelemetry propagator interface so library
// instrumentation shares the same handlers.
func (p *Propagator) TextMap() propagation.TextMapPropagator {
	return textMap{p}
}

type textMap struct {
	p *Propagator
}

func (t textMap) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	t.p.InjectContext(ctx, carrier)
}

func (t textMap) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return t.p.ExtractContext(ctx, carrier)
}

func (t textMap) Fields() []string {
	return t.p.Fields()
}

// InjectHeaders writes the active context of ctx into outbound HTTP headers.
//
//	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
//	tracing.InjectHeaders(ctx, p, req.Header)
func InjectHeaders(ctx context.Context, p *Propagator, headers http.Header) {
	p.InjectContext(ctx, propagation.HeaderCarrier(headers))
}

// ErrInvalidTraceParent is returned by ParseTraceParent for a malformed
// traceparent header.
var ErrInvalidTraceParent = errors.New("invalid traceparent")

// TraceParent is a decoded traceparent header:
// version-trace_id-parent_id-trace_flags.
type TraceParent struct {
	Version  byte
	TraceID  trace.TraceID
	ParentID trace.SpanID
	Flags    trace.TraceFlags
}

// Sampled reports whether the caller sampled the trace.
func (tp TraceParent) Sampled() bool {
	return tp.Flags.IsSampled()
}

// ParseTraceParent decodes a version 00 style traceparent header. Hex must be
// lowercase; all-zero ids and version ff are rejected.
func ParseTraceParent(s string) (TraceParent, error) {
	var tp TraceParent

	parts := strings.Split(s, "-")
	if len(parts) < 4 {
		return tp, fmt.Errorf("%w: want 4 fields, got %d", ErrInvalidTraceParent, len(parts))
	}

	version, err := hexByte(parts[0])
	if err != nil || version == 0xff {
		return tp, fmt.Errorf("%w: bad version %q", ErrInvalidTraceParent, parts[0])
	}
	if version == 0 && len(parts) != 4 {
		return tp, fmt.Errorf("%w: version 00 has exactly 4 fields", ErrInvalidTraceParent)
	}
	tp.Version = version

	if len(parts[1]) != 32 {
		return tp, fmt.Errorf("%w: trace id must be 32 hex digits", ErrInvalidTraceParent)
	}
	if tp.TraceID, err = trace.TraceIDFromHex(parts[1]); err != nil {
		return tp, fmt.Errorf("%w: trace id: %v", ErrInvalidTraceParent, err)
	}

	if len(parts[2]) != 16 {
		return tp, fmt.Errorf("%w: parent id must be 16 hex digits", ErrInvalidTraceParent)
	}
	if tp.ParentID, err = trace.SpanIDFromHex(parts[2]); err != nil {
		return tp, fmt.Errorf("%w: parent id: %v", ErrInvalidTraceParent, err)
	}

	flags, err := hexByte(parts[3])
	if err != nil {
		return tp, fmt.Errorf("%w: bad flags %q", ErrInvalidTraceParent, parts[3])
	}
	tp.Flags = trace.TraceFlags(flags)

	return tp, nil
}

// ValidateTraceParent reports whether s is a well-formed traceparent.
func ValidateTraceParent(s string) bool {
	_, err := ParseTraceParent(s)
	return err == nil
}

// hexByte decodes exactly two lowercase hex digits.
func hexByte(s string) (byte, error) {
	if len(s) != 2 || strings.ToLower(s) != s {
		return 0, ErrInvalidTraceParent
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// PropagationDebugInfo summarizes the propagation headers of a request for
// a debug log line. Absent headers are omitted.
func PropagationDebugInfo(headers http.Header) map[string]string {
	info := make(map[string]string, 6)

	if raw := headers.Get("traceparent"); raw != "" {
		info["traceparent"] = raw
		if tp, err := ParseTraceParent(raw); err != nil {
			info["error"] = err.Error()
		} else {
			info["trace_id"] = tp.TraceID.String()
			info["parent_id"] = tp.ParentID.String()
			info["sampled"] = strconv.FormatBool(tp.Sampled())
		}
	}
	for _, h := range []string{"tracestate", "baggage"} {
		if v := headers.Get(h); v != "" {
			info[h] = v
		}
	}

	return info
}
