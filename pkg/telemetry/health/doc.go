// Package health reports whether the telemetry pipeline can reach its
// collectors.
//
// A Checker holds named checks and runs them concurrently, each bounded by
// its own timeout. The service is ready when every check passes and
// degraded otherwise; ReadinessHandler maps that to 200 or 503.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("exporter.traces", health.EndpointCheck("http://collector:4318"))
//	mux.Handle("/ready", checker.ReadinessHandler())
//
// ProbeEndpoint is the same TCP probe bootstrap uses to reject unreachable
// exporter endpoints before any provider is built.
package health
