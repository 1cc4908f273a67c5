// Observe is a small HTTP service instrumented end to end with
// OpenTelemetry traces, logs and metrics.
//
// Usage:
//
//	# Start the server with the default configuration
//	observe run
//
//	# Start with a configuration file and export to a local collector
//	observe run --config observe.yaml --endpoint http://localhost:4317
//
//	# Check a configuration file and the collector before deploying
//	observe validate --config observe.yaml --probe
//
//	# Show version information
//	observe version --output json
package main

func main() {
	Execute()
}
