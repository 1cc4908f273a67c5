package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"demo-observe/observe/pkg/cli"
	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/server"
	"demo-observe/observe/pkg/telemetry"
	"demo-observe/observe/pkg/telemetry/logging"
	"demo-observe/observe/pkg/telemetry/report"
)

var runFlags struct {
	host       string
	port       int
	logLevel   string
	endpoint   string
	protocol   string
	prometheus bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the HTTP server",
	Long: `Start the instrumented HTTP server.

Startup order:
  1. Load configuration (file, then OTEL_/DEMO_ environment, then flags)
  2. Initialize the trace, log and metric pipelines
  3. Install the log bridge
  4. Listen and serve

An unreachable exporter endpoint, a malformed endpoint URL or an unknown
log level stops startup with exit code 1. On SIGINT or SIGTERM the server
stops accepting connections, drains in-flight requests within the shutdown
timeout and flushes traces, logs and metrics before exiting.

Examples:
  # Start with defaults (127.0.0.1:3000, OTLP gRPC to localhost:4317)
  observe run

  # Write telemetry to stdout instead of a collector
  observe run --protocol stdout

  # Listen on all interfaces with debug logging
  observe run --host 0.0.0.0 --port 8080 --log-level debug`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.host, "host", "", "override listen host")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override minimum log severity (trace, debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.endpoint, "endpoint", "", "override exporter endpoint URL")
	runCmd.Flags().StringVar(&runFlags.protocol, "protocol", "", "override exporter protocol (grpc, http/protobuf, stdout)")
	runCmd.Flags().BoolVar(&runFlags.prometheus, "prometheus", false, "expose the Prometheus metrics endpoint")
}

// runOptions carries what run needs besides the configuration.
type runOptions struct {
	// configPath enables hot reload of the log level when set.
	configPath string

	// out receives console logs and stdout telemetry.
	out io.Writer

	// ready is called with the listen address once the server accepts
	// connections.
	ready func(addr string)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	return run(ctx, cfg, runOptions{
		configPath: cfgFile,
		out:        cmd.OutOrStdout(),
	})
}

// loadRunConfig loads the configuration and applies the flags that were
// set explicitly.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = runFlags.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = runFlags.port
	}
	if flags.Changed("log-level") {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if flags.Changed("endpoint") {
		cfg.Telemetry.Exporter.Endpoint = runFlags.endpoint
	}
	if flags.Changed("protocol") {
		cfg.Telemetry.Exporter.Protocol = runFlags.protocol
	}
	if flags.Changed("prometheus") {
		cfg.Telemetry.Metrics.Prometheus.Enabled = runFlags.prometheus
	}

	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// run bootstraps telemetry, serves until ctx is done and shuts down. It
// returns nil only after a graceful shutdown.
func run(ctx context.Context, cfg *config.Config, o runOptions) error {
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = Version
	}

	logOpts := logging.Options{
		Name:      cfg.Telemetry.ServiceName,
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    o.out,
	}

	// Telemetry reports its own failures on the console only, so that an
	// export error never feeds back into the log pipeline.
	console, err := logging.New(nil, logOpts)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry,
		telemetry.WithLogger(console.Logger()),
		telemetry.WithStdoutWriter(o.out),
	)
	if err != nil {
		console.Logger().Error("telemetry bootstrap failed", "error", err)
		return cli.NewCommandError("run", err)
	}

	bridge, err := logging.Install(tel.LoggerProvider(), logOpts)
	if err != nil {
		shutdownTelemetry(tel, console.Logger())
		return cli.NewCommandError("run", err)
	}
	logger := bridge.Logger()

	logger.Info("telemetry initialized",
		"service", cfg.Telemetry.ServiceName,
		"version", cfg.Telemetry.ServiceVersion,
		"endpoint", cfg.Telemetry.Exporter.Endpoint,
		"protocol", cfg.Telemetry.Exporter.Protocol,
	)

	if cfg.Telemetry.StatsSchedule != "" {
		reporter := report.New(cfg.Telemetry.StatsSchedule, tel.Stats, console.Logger())
		if err := reporter.Start(ctx); err != nil {
			logger.Warn("failed to start export stats reporter", "error", err)
		} else {
			defer reporter.Stop()
			if next := reporter.NextRun(); next != nil {
				logger.Debug("export stats reporter started", "next_run", next)
			}
		}
	}

	if o.configPath != "" {
		if stopWatch := watchLogLevel(ctx, o.configPath, bridge, logger); stopWatch != nil {
			defer stopWatch()
		}
	}

	srv := server.New(cfg.Server, tel,
		server.WithLogger(logger),
		server.WithBuildInfo(server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		}),
	)

	ln, err := srv.Listen()
	if err != nil {
		logger.Error("failed to listen", "address", cfg.Server.Address(), "error", err)
		shutdownTelemetry(tel, console.Logger())
		return cli.NewCommandError("run", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	if o.ready != nil {
		o.ready(ln.Addr().String())
	}

	coordinator := server.NewCoordinator(srv, tel, cfg.Server.ShutdownTimeout, logger)
	if err := coordinator.Wait(ctx, serveErr); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// watchLogLevel applies the log level of every reloaded configuration to
// bridge. It returns a function that stops watching, or nil when the file
// cannot be watched.
func watchLogLevel(ctx context.Context, path string, bridge *logging.Bridge, logger *slog.Logger) func() {
	w, err := config.NewWatcher(path, 0, logger)
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
		return nil
	}

	go func() {
		if err := w.Watch(ctx, func(cfg *config.Config) {
			applyLogLevel(bridge, cfg.Telemetry.Logging.Level, logger)
		}); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	return func() { _ = w.Stop() }
}

func applyLogLevel(bridge *logging.Bridge, name string, logger *slog.Logger) {
	level, err := logging.ParseLevel(name)
	if err != nil {
		logger.Warn("ignoring reloaded log level", "level", name, "error", err)
		return
	}
	if level == bridge.Level() {
		return
	}
	prev := bridge.Level()
	bridge.SetLevel(level)
	logger.Info("log level changed", "from", prev.String(), "to", level.String())
}

func shutdownTelemetry(tel *telemetry.Telemetry, logger *slog.Logger) {
	if err := tel.Shutdown(context.Background()); err != nil {
		logger.Warn("telemetry flush incomplete", "error", err)
	}
}
