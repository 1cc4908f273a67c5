// Package middleware provides the generic HTTP middleware of the service:
// panic recovery, request IDs and access logging.
//
// The server assembles them around the tracing and metrics middleware of
// the telemetry packages:
//
//	handler := middleware.Chain(mux,
//	    middleware.Recovery(logger),         // outermost: turns panics into 500
//	    middleware.RequestID,                // X-Request-ID in context and response
//	    tracing.Middleware(builder),         // server span
//	    metrics.Middleware(instruments),     // request count, errors, duration
//	    middleware.AccessLog(logger),        // one entry per request
//	)
//
// Recovery must stay outside the tracing and metrics middleware: those
// record a panic and let it continue so the span and the counters see it.
package middleware
