package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"demo-observe/observe/pkg/telemetry/batch"
)

// StatsFunc returns the export queue counters keyed by signal.
type StatsFunc func() map[string]batch.Stats

// Reporter logs the export queue counters on a cron schedule, so losses
// are visible even without a metrics backend.
type Reporter struct {
	stats    StatsFunc
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	last    map[string]batch.Stats
}

// New creates a reporter. An empty schedule disables it.
func New(schedule string, stats StatsFunc, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		stats:    stats,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "telemetry.report"),
		last:     make(map[string]batch.Stats),
	}
}

// Start schedules the report. The reporter stops when ctx is done.
//
// Common cron expressions:
//   - "*/5 * * * *"  - Every 5 minutes
//   - "@hourly"      - Every hour
//   - "@every 30s"   - Every 30 seconds
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schedule == "" {
		r.logger.Debug("stats schedule not configured, skipping reporter")
		return nil
	}
	if r.running {
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}

	if _, err := r.cron.AddFunc(r.schedule, func() { r.Report(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule stats report: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("stats reporter started", "schedule", r.schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Report logs one line per signal. New losses since the previous report
// are logged as a warning.
func (r *Reporter) Report(ctx context.Context) {
	current := r.stats()

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		s := current[name]
		prev := r.last[name]
		lost := (s.Dropped - prev.Dropped) + (s.Failed - prev.Failed)

		level := slog.LevelInfo
		if lost > 0 {
			level = slog.LevelWarn
		}
		r.logger.Log(ctx, level, "export queue stats",
			"signal", name,
			"queued", s.Queued,
			"exported", s.Exported,
			"dropped", s.Dropped,
			"failed", s.Failed,
			"lost_since_last", lost,
		)
		r.last[name] = s
	}
}

// Stop stops the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	running := r.running
	r.running = false
	r.mu.Unlock()

	if !running {
		return
	}
	// Report takes r.mu, so wait without holding it.
	<-r.cron.Stop().Done()
	r.logger.Info("stats reporter stopped")
}

// IsRunning reports whether the schedule is active.
func (r *Reporter) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled report, nil when none is scheduled.
func (r *Reporter) NextRun() *time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
