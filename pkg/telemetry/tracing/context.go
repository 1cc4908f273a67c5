package tracing

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/baggage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryContext is the correlation state carried with one unit of work:
// the trace and span identity, the parent span when it is known, and the
// baggage entries. It is a value; the With* methods return copies.
type TelemetryContext struct {
	spanContext trace.SpanContext
	parent      trace.SpanID
	baggage     baggage.Baggage
}

// NewTelemetryContext builds a TelemetryContext from its parts.
func NewTelemetryContext(sc trace.SpanContext, parent trace.SpanID, bag baggage.Baggage) TelemetryContext {
	return TelemetryContext{spanContext: sc, parent: parent, baggage: bag}
}

// FromContext returns the TelemetryContext of the active scope in ctx. The
// parent span id is filled in when the active span was produced by the SDK.
func FromContext(ctx context.Context) TelemetryContext {
	span := trace.SpanFromContext(ctx)
	tc := TelemetryContext{
		spanContext: span.SpanContext(),
		baggage:     baggage.FromContext(ctx),
	}
	if ro, ok := span.(sdktrace.ReadOnlySpan); ok {
		tc.parent = ro.Parent().SpanID()
	}
	return tc
}

// Context returns ctx carrying tc's span identity as a remote parent and
// tc's baggage. Spans started from the result are children of tc.
func (tc TelemetryContext) Context(ctx context.Context) context.Context {
	if tc.spanContext.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, tc.spanContext)
	}
	if tc.baggage.Len() > 0 {
		ctx = baggage.ContextWithBaggage(ctx, tc.baggage)
	}
	return ctx
}

// SpanContext returns the trace id, span id, flags and trace state.
func (tc TelemetryContext) SpanContext() trace.SpanContext {
	return tc.spanContext
}

// TraceID returns the trace identifier.
func (tc TelemetryContext) TraceID() trace.TraceID {
	return tc.spanContext.TraceID()
}

// SpanID returns the span identifier.
func (tc TelemetryContext) SpanID() trace.SpanID {
	return tc.spanContext.SpanID()
}

// ParentSpanID returns the parent span id, or the zero id for a root or an
// unknown parent.
func (tc TelemetryContext) ParentSpanID() trace.SpanID {
	return tc.parent
}

// IsValid reports whether tc carries a usable trace identity.
func (tc TelemetryContext) IsValid() bool {
	return tc.spanContext.IsValid()
}

// Baggage returns the baggage entries.
func (tc TelemetryContext) Baggage() baggage.Baggage {
	return tc.baggage
}

// BaggageEntries returns the baggage as key/value pairs ordered by key.
func (tc TelemetryContext) BaggageEntries() []BaggageEntry {
	members := tc.baggage.Members()
	entries := make([]BaggageEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, BaggageEntry{Key: m.Key(), Value: m.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// WithSpanContext returns a copy of tc with a different span identity.
func (tc TelemetryContext) WithSpanContext(sc trace.SpanContext) TelemetryContext {
	tc.spanContext = sc
	return tc
}

// WithBaggage returns a copy of tc with different baggage.
func (tc TelemetryContext) WithBaggage(bag baggage.Baggage) TelemetryContext {
	tc.baggage = bag
	return tc
}

// Equal reports whether tc and other carry the same trace id, span id and
// baggage set. Flags, trace state and the parent are not compared.
func (tc TelemetryContext) Equal(other TelemetryContext) bool {
	if tc.spanContext.TraceID() != other.spanContext.TraceID() ||
		tc.spanContext.SpanID() != other.spanContext.SpanID() {
		return false
	}

	a, b := tc.BaggageEntries(), other.BaggageEntries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// BaggageEntry is one baggage key/value pair.
type BaggageEntry struct {
	Key   string
	Value string
}
