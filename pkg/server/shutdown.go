package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrGraceExceeded is returned when in-flight requests did not finish
// within the grace period.
var ErrGraceExceeded = errors.New("shutdown grace period exceeded")

// Drainer is the serving side of a shutdown.
type Drainer interface {
	Shutdown(ctx context.Context) error
	Close() error
}

// Flusher is the telemetry side of a shutdown.
type Flusher interface {
	Shutdown(ctx context.Context) error
}

// Coordinator turns a termination signal or the end of the serving loop
// into one ordered shutdown: stop accepting, drain in-flight requests
// within the grace period, then flush telemetry.
type Coordinator struct {
	server    Drainer
	telemetry Flusher
	grace     time.Duration
	logger    *slog.Logger

	once sync.Once
	err  error
}

// NewCoordinator creates a coordinator. grace bounds the drain of
// in-flight requests.
func NewCoordinator(server Drainer, telemetry Flusher, grace time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		server:    server,
		telemetry: telemetry,
		grace:     grace,
		logger:    logger.With("component", "shutdown"),
	}
}

// Wait blocks until ctx is done or the serving loop reports on serveErr,
// then shuts down. A serving loop that fails is reported together with
// the shutdown result.
func (c *Coordinator) Wait(ctx context.Context, serveErr <-chan error) error {
	select {
	case <-ctx.Done():
		c.logger.Info("termination signal received, shutting down")
		return c.Shutdown(context.WithoutCancel(ctx))
	case err := <-serveErr:
		if err != nil {
			c.logger.Error("serving loop failed", "error", err)
			return errors.Join(fmt.Errorf("serve: %w", err), c.Shutdown(context.WithoutCancel(ctx)))
		}
		return c.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown runs the shutdown once. Later calls return the first result.
// Telemetry flush failures are logged and do not fail the shutdown; only
// an exceeded grace period does.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.err = c.shutdown(ctx)
	})
	return c.err
}

func (c *Coordinator) shutdown(ctx context.Context) error {
	start := time.Now()
	var err error

	drainCtx, cancel := context.WithTimeout(ctx, c.grace)
	drainErr := c.server.Shutdown(drainCtx)
	cancel()

	switch {
	case drainErr == nil:
		c.logger.Info("in-flight requests drained", "elapsed", time.Since(start))
	case errors.Is(drainErr, context.DeadlineExceeded):
		c.logger.Error("in-flight requests still running after grace period", "grace", c.grace)
		_ = c.server.Close()
		err = fmt.Errorf("%w (%s)", ErrGraceExceeded, c.grace)
	default:
		_ = c.server.Close()
		err = fmt.Errorf("server shutdown: %w", drainErr)
	}

	if flushErr := c.telemetry.Shutdown(ctx); flushErr != nil {
		c.logger.Warn("telemetry flush incomplete", "error", flushErr)
	}

	c.logger.Info("shutdown complete", "elapsed", time.Since(start))
	return err
}
