package logging

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"

	"demo-observe/observe/pkg/config"
	"demo-observe/observe/pkg/telemetry/batch"
)

// recordingExporter keeps every exported record, including after Shutdown.
type recordingExporter struct {
	mu       sync.Mutex
	recs     []sdklog.Record
	shutdown int
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.recs = append(e.recs, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown++
	return nil
}

func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.recs...)
}

func testBatchConfig() batch.Config {
	return batch.Config{
		QueueSize:    64,
		MaxBatchSize: 8,
		Interval:     time.Hour,
	}
}

func newTestLoggerProvider(exp sdklog.Exporter) *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(NewProcessor(exp, testBatchConfig())))
}

func emit(lp log.LoggerProvider, body string) {
	var r log.Record
	r.SetBody(log.StringValue(body))
	r.SetSeverity(log.SeverityInfo)
	lp.Logger("test").Emit(context.Background(), r)
}

func TestProcessor_ShutdownExportsEverything(t *testing.T) {
	exp := &recordingExporter{}
	p := NewProcessor(exp, testBatchConfig())
	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(p))

	for _, body := range []string{"one", "two", "three"} {
		emit(lp, body)
	}

	if err := lp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	records := exp.records()
	if len(records) != 3 {
		t.Fatalf("exported %d records, want 3", len(records))
	}
	for i, want := range []string{"one", "two", "three"} {
		if got := records[i].Body().AsString(); got != want {
			t.Errorf("record %d body = %q, want %q", i, got, want)
		}
	}
	if exp.shutdown != 1 {
		t.Errorf("exporter shut down %d times, want 1", exp.shutdown)
	}
}

func TestProcessor_EmitAfterShutdownIsDropped(t *testing.T) {
	exp := &recordingExporter{}
	p := NewProcessor(exp, testBatchConfig())

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}

	var r sdklog.Record
	r.SetBody(log.StringValue("late"))
	if err := p.OnEmit(context.Background(), &r); err != nil {
		t.Fatalf("OnEmit() error = %v", err)
	}

	if got := p.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	if len(exp.records()) != 0 {
		t.Error("record emitted after shutdown was exported")
	}
	if exp.shutdown != 1 {
		t.Errorf("exporter shut down %d times, want 1", exp.shutdown)
	}
}

func TestProcessor_RecordIsCopied(t *testing.T) {
	exp := &recordingExporter{}
	p := NewProcessor(exp, testBatchConfig())

	var r sdklog.Record
	r.SetBody(log.StringValue("original"))
	p.OnEmit(context.Background(), &r)
	r.SetBody(log.StringValue("mutated"))

	if err := p.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	records := exp.records()
	if len(records) != 1 || records[0].Body().AsString() != "original" {
		t.Errorf("queued record changed after OnEmit: %v", records)
	}
	p.Shutdown(context.Background())
}

func TestNewProvider(t *testing.T) {
	exp := &recordingExporter{}
	p, err := NewProvider(resource.Empty(), exp, config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	emit(p.LoggerProvider(), "hello")
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := len(exp.records()); got != 1 {
		t.Errorf("exported %d records, want 1", got)
	}
	if stats := p.Stats(); stats.Exported != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := NewProvider(resource.Empty(), nil, config.LoggingConfig{}, nil); err == nil {
		t.Error("expected an error for a nil exporter")
	}
}
