package batch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"demo-observe/observe/pkg/config"
)

// Policy selects what a producer does when the queue is full.
type Policy int

const (
	// Drop discards the record and counts it as lost.
	Drop Policy = iota
	// Block waits up to Config.BlockTimeout for room, then drops.
	Block
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == Block {
		return config.OverflowBlock
	}
	return config.OverflowDrop
}

// ExportFunc ships one batch. The slice is owned by the callee.
type ExportFunc[T any] func(ctx context.Context, items []T) error

// Config configures a Batcher.
type Config struct {
	QueueSize     int
	MaxBatchSize  int
	Interval      time.Duration
	ExportTimeout time.Duration
	Overflow      Policy
	BlockTimeout  time.Duration

	// Logger receives export failures. It must not feed back into the
	// batcher it belongs to.
	Logger *slog.Logger
}

// FromConfig converts the YAML batch section into a Config.
func FromConfig(c config.BatchConfig) Config {
	p := Drop
	if c.Overflow == config.OverflowBlock {
		p = Block
	}
	return Config{
		QueueSize:     c.QueueSize,
		MaxBatchSize:  c.MaxBatchSize,
		Interval:      c.Interval,
		ExportTimeout: c.ExportTimeout,
		Overflow:      p,
		BlockTimeout:  c.BlockTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = config.DefaultQueueSize
	}
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > c.QueueSize {
		c.MaxBatchSize = min(config.DefaultMaxBatchSize, c.QueueSize)
	}
	if c.Interval <= 0 {
		c.Interval = config.DefaultTraceBatchInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = config.DefaultBatchExportTimeout
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = config.DefaultBlockTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats is a point-in-time view of a Batcher's counters.
type Stats struct {
	// Queued is the number of records waiting in the queue.
	Queued int
	// Enqueued counts records accepted by the queue.
	Enqueued uint64
	// Exported counts records the exporter acknowledged.
	Exported uint64
	// Dropped counts records lost to a full queue, to shutdown, or to a
	// shutdown deadline.
	Dropped uint64
	// Failed counts records the exporter rejected.
	Failed uint64
}

type flushRequest struct {
	ctx  context.Context
	done chan error
}

// Batcher is a bounded multi-producer, single-consumer export queue. Any
// number of goroutines may call Enqueue; exactly one goroutine owned by the
// Batcher drains the queue and calls the export function, so exports for
// one signal never overlap and preserve enqueue order.
type Batcher[T any] struct {
	name   string
	cfg    Config
	export ExportFunc[T]
	logger *slog.Logger

	queue   chan T
	flushCh chan flushRequest
	stopCh  chan context.Context
	done    chan struct{}

	// mu orders Enqueue against Shutdown: producers hold the read lock
	// while sending, Shutdown takes the write lock to flip closed.
	mu     sync.RWMutex
	closed bool

	shutdownOnce sync.Once
	shutdownErr  error
	finalErr     error

	enqueued atomic.Uint64
	exported atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

// New creates a Batcher and starts its export goroutine.
func New[T any](name string, cfg Config, export ExportFunc[T]) *Batcher[T] {
	cfg.applyDefaults()

	b := &Batcher[T]{
		name:    name,
		cfg:     cfg,
		export:  export,
		logger:  cfg.Logger.With("component", "telemetry.batch", "queue", name),
		queue:   make(chan T, cfg.QueueSize),
		flushCh: make(chan flushRequest),
		stopCh:  make(chan context.Context, 1),
		done:    make(chan struct{}),
	}

	go b.run()
	return b
}

// Name returns the queue name given to New.
func (b *Batcher[T]) Name() string {
	return b.name
}

// Enqueue offers item to the queue and reports whether it was accepted.
// It never panics and never blocks longer than the block timeout. Items
// offered after Shutdown are dropped and counted.
func (b *Batcher[T]) Enqueue(item T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return false
	}

	select {
	case b.queue <- item:
		b.enqueued.Add(1)
		return true
	default:
	}

	if b.cfg.Overflow == Block {
		timer := time.NewTimer(b.cfg.BlockTimeout)
		defer timer.Stop()
		select {
		case b.queue <- item:
			b.enqueued.Add(1)
			return true
		case <-timer.C:
		}
	}

	b.dropped.Add(1)
	return false
}

// ForceFlush exports everything queued at the time of the call and waits
// for the exports to finish or ctx to expire.
func (b *Batcher[T]) ForceFlush(ctx context.Context) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil
	}

	req := flushRequest{ctx: ctx, done: make(chan error, 1)}
	select {
	case b.flushCh <- req:
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting records, exports everything still queued and
// stops the export goroutine. Records still queued when ctx expires are
// counted as dropped. Calls after the first return nil.
func (b *Batcher[T]) Shutdown(ctx context.Context) error {
	first := false
	b.shutdownOnce.Do(func() {
		first = true

		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		b.stopCh <- ctx

		select {
		case <-b.done:
		case <-ctx.Done():
			b.shutdownErr = ctx.Err()
			return
		}
		b.shutdownErr = b.finalErr
	})
	if !first {
		return nil
	}
	return b.shutdownErr
}

// Stats returns the current counters.
func (b *Batcher[T]) Stats() Stats {
	return Stats{
		Queued:   len(b.queue),
		Enqueued: b.enqueued.Load(),
		Exported: b.exported.Load(),
		Dropped:  b.dropped.Load(),
		Failed:   b.failed.Load(),
	}
}

func (b *Batcher[T]) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	buf := make([]T, 0, b.cfg.MaxBatchSize)

	for {
		select {
		case item := <-b.queue:
			buf = append(buf, item)
			if len(buf) >= b.cfg.MaxBatchSize {
				b.exportBatch(context.Background(), &buf)
				ticker.Reset(b.cfg.Interval)
			}

		case <-ticker.C:
			b.exportBatch(context.Background(), &buf)

		case req := <-b.flushCh:
			req.done <- b.drain(req.ctx, &buf, false)

		case ctx := <-b.stopCh:
			b.finalErr = b.drain(ctx, &buf, true)
			return
		}
	}
}

// drain exports the buffered batch plus everything queued when it starts.
// On the final drain no producer can add to the queue, so the snapshot is
// complete and anything left when ctx expires is lost.
func (b *Batcher[T]) drain(ctx context.Context, buf *[]T, final bool) error {
	var err error

	n := len(b.queue)
	for i := 0; i < n && ctx.Err() == nil; i++ {
		*buf = append(*buf, <-b.queue)
		if len(*buf) >= b.cfg.MaxBatchSize {
			if e := b.exportBatch(ctx, buf); e != nil {
				err = e
			}
		}
	}

	if ctx.Err() == nil {
		if e := b.exportBatch(ctx, buf); e != nil {
			err = e
		}
	}

	if ctx.Err() != nil {
		if final {
			lost := len(*buf)
			*buf = (*buf)[:0]
			for len(b.queue) > 0 {
				<-b.queue
				lost++
			}
			if lost > 0 {
				b.dropped.Add(uint64(lost))
				b.logger.Warn("records lost at shutdown deadline", "count", lost)
			}
		}
		return ctx.Err()
	}
	return err
}

func (b *Batcher[T]) exportBatch(ctx context.Context, buf *[]T) error {
	if len(*buf) == 0 {
		return nil
	}

	items := *buf
	*buf = make([]T, 0, b.cfg.MaxBatchSize)

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ExportTimeout)
	defer cancel()

	if err := b.export(ctx, items); err != nil {
		b.failed.Add(uint64(len(items)))
		b.logger.Warn("export failed", "records", len(items), "error", err)
		return err
	}

	b.exported.Add(uint64(len(items)))
	return nil
}
