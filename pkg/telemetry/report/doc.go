// Package report periodically logs the export queue counters of the
// telemetry pipelines.
package report
