package middleware

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel/trace"

	"demo-observe/observe/pkg/telemetry/logging"
	"demo-observe/observe/pkg/telemetry/tracing"
)

// AccessLog logs one entry per request once the response is written. It
// runs inside the server span, so the entry carries the trace and span id
// and the span gets the request id.
//
// Log format (JSON):
//
//	{
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "GET",
//	  "path": "/health",
//	  "status": 200,
//	  "latency_ms": 1,
//	  "bytes": 2,
//	  "request_id": "0b6c...",
//	  "trace_id": "4bf9...",
//	  "span_id": "00f0..."
//	}
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestID := logging.GetRequestID(ctx); requestID != "" {
				tracing.SetRequestID(trace.SpanFromContext(ctx), requestID)
			}

			logger.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			m := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			if m.Code >= 500 {
				level = slog.LevelError
			} else if m.Code >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(ctx, level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"latency_ms", m.Duration.Milliseconds(),
				"bytes", m.Written,
			)
		})
	}
}
