// Package logging bridges log/slog to the OpenTelemetry log pipeline.
//
// # Overview
//
// A Bridge is a slog handler with two outputs:
//   - the OpenTelemetry logger provider, through the otelslog bridge, which
//     stamps each record with the trace and span id of its context
//   - the console, as JSON or text, with trace_id, span_id and request_id
//     attributes added from the context
//
// The minimum severity is checked in Enabled, so filtered records are
// never built. It is held in a slog.LevelVar and can be changed at runtime.
//
// # Usage
//
//	bridge, err := logging.Install(loggerProvider, logging.Options{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//
//	slog.InfoContext(ctx, "request handled", "status", 200)
//
// Install makes the bridge the slog default and may only succeed once per
// process.
//
// # Severities
//
// ParseLevel accepts trace, debug, info, warn (or warning) and error in any
// case. Trace is one step below debug and renders as "TRACE".
//
// # Export
//
// Processor is an sdklog.Processor that copies each emitted record into a
// bounded export queue drained by one goroutine. Records emitted after
// shutdown are dropped and counted.
package logging
