package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// SpanBuilder creates the server span for an inbound request. The returned
// context carries the span and the baggage extracted from the request.
type SpanBuilder interface {
	BuildSpan(r *http.Request) (context.Context, trace.Span)
}

// DefaultSpanBuilder extracts the caller's context from the request headers
// and starts a server span named "{method} {path}" as its child. Requests
// without a valid traceparent start a new trace.
type DefaultSpanBuilder struct {
	Tracer     trace.Tracer
	Propagator *Propagator
	Logger     *slog.Logger
}

var _ SpanBuilder = (*DefaultSpanBuilder)(nil)

// BuildSpan implements SpanBuilder.
func (b *DefaultSpanBuilder) BuildSpan(r *http.Request) (context.Context, trace.Span) {
	ctx := r.Context()
	if b.Propagator != nil {
		ctx = b.Propagator.ExtractContext(ctx, propagation.HeaderCarrier(r.Header))
	}

	if tp := r.Header.Get("traceparent"); tp != "" && !ValidateTraceParent(tp) && b.Logger != nil {
		b.Logger.DebugContext(ctx, "ignoring invalid trace context",
			"propagation", PropagationDebugInfo(r.Header),
		)
	}

	return b.Tracer.Start(ctx, SpanName(r),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(RequestAttributes(r)...),
	)
}

// SpanName returns "{method} {path}" for r.
func SpanName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// Middleware wraps next in a server span built by builder. The span status
// is Error for 5xx responses and Ok otherwise. The span is ended on every
// exit path; a panicking handler has the panic recorded on its span before
// the panic continues up the stack.
func Middleware(builder SpanBuilder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := builder.BuildSpan(r)
			rec := newStatusRecorder(w)

			defer func() {
				if p := recover(); p != nil {
					err := fmt.Errorf("panic: %v", p)
					span.RecordError(err, trace.WithStackTrace(true))
					span.SetAttributes(attribute.Bool(AttrPanic, true))
					span.SetStatus(codes.Error, err.Error())
					span.End()
					panic(p)
				}

				status, size := rec.result()
				SetResponseAttributes(span, status, size)
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				} else {
					span.SetStatus(codes.Ok, "")
				}
				span.End()
			}()

			next.ServeHTTP(rec.writer, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the status code and body size written by a
// handler. A handler that never calls WriteHeader answered 200.
type statusRecorder struct {
	writer http.ResponseWriter

	mu          sync.Mutex
	status      int
	size        int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	rec := &statusRecorder{status: http.StatusOK}
	rec.writer = httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				rec.mu.Lock()
				if !rec.wroteHeader {
					rec.status = code
					rec.wroteHeader = true
				}
				rec.mu.Unlock()
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				n, err := next(b)
				rec.mu.Lock()
				rec.wroteHeader = true
				rec.size += int64(n)
				rec.mu.Unlock()
				return n, err
			}
		},
	})
	return rec
}

func (rec *statusRecorder) result() (int, int64) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.status, rec.size
}
