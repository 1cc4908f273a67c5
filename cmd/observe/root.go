package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"demo-observe/observe/pkg/cli"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "observe",
	Short: "Observe - an HTTP service instrumented with OpenTelemetry",
	Long: `Observe serves a handful of HTTP endpoints and records every request as
OpenTelemetry traces, logs and metrics.

  - Traces: one server span per request, W3C trace context and baggage
  - Logs: slog records bridged to the OpenTelemetry log pipeline
  - Metrics: request counters and latency histograms, pushed every 10s

Telemetry is exported over OTLP (gRPC or HTTP) or written to stdout.
Standard OTEL_ environment variables override the configuration file.`,
	Version: Version,
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
}
