// Package metrics provides the metric pipeline of the observe service.
//
// # Overview
//
// A Provider wraps an OpenTelemetry meter provider. Its periodic reader is
// the background export task: every interval (10s by default) it collects
// accumulated values and exports them, whether or not requests arrived.
// Shutdown performs one last collection so nothing recorded is lost.
//
// # Instruments
//
// Instruments is the fixed set recorded by the service:
//   - http.server.request.count: requests served
//   - http.server.error.count: requests answered with a 5xx status
//   - http.server.request.duration: request latency histogram (seconds)
//   - telemetry.export.dropped: records lost by the export queues, per signal
//   - telemetry.export.queued: records waiting in the export queues, per signal
//
// The url.path attribute is capped at a fixed number of distinct values;
// later paths are reported as "other".
//
// # Usage
//
//	provider, err := metrics.NewProvider(res, exporter, cfg.Telemetry.Metrics)
//	inst, err := metrics.NewInstruments(provider.Meter(), telemetry.QueueStats)
//	handler = metrics.Middleware(inst)(handler)
//
// # Prometheus
//
// With prometheus.enabled set, the same instruments are also exposed for
// scraping, together with Go runtime and process collectors, on a private
// registry:
//
//	telemetry:
//	  metrics:
//	    interval: 10s
//	    temporality: delta
//	    prometheus:
//	      enabled: true
//	      path: /metrics
package metrics
