// Package telemetry bootstraps the trace, log and metric pipelines of the
// service.
//
// # Pipelines
//
// Each signal gets its own provider, exporter and batching policy:
//
//   - traces: sdktrace provider fed by a bounded export queue
//   - logs: sdklog provider fed by a bounded export queue
//   - metrics: sdkmetric provider with a periodic reader (10s by default)
//     and an optional Prometheus pull endpoint
//
// The exporter protocol is shared: "grpc" and "http/protobuf" speak OTLP to
// the configured collector, "stdout" prints to the process output.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry, telemetry.WithLogger(console))
//	if err != nil {
//	    return err // *BootstrapError
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer()
//	bridge, err := logging.Install(tel.LoggerProvider(), opts)
//
// Nothing is registered with the OpenTelemetry globals; the Telemetry value
// is handed to whatever records telemetry.
//
// # Initialization
//
// Init starts one pipeline and fails with ErrAlreadyInitialized when called
// twice for the same signal. A malformed endpoint, an unreachable collector
// or an invalid setting fails bootstrap with a *BootstrapError.
//
// # Shutdown
//
// Shutdown stops the pipelines in the order traces, logs, metrics. Every
// pipeline flushes with its own timeout, so one stuck exporter cannot
// starve the others. Shutdown is idempotent.
package telemetry
