package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default timeout", timeout: 0, expectedTimeout: DefaultCheckTimeout},
		{name: "negative timeout", timeout: -time.Second, expectedTimeout: DefaultCheckTimeout},
		{name: "custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.timeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.timeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Errorf("expected 0 checks, got %d", len(checker.ListChecks()))
			}
		})
	}
}

func TestRegisterCheck(t *testing.T) {
	checker := New(time.Second)
	ok := func(context.Context) error { return nil }

	checker.RegisterCheck("exporter.traces", ok)
	checker.RegisterCheck("exporter.logs", ok)
	checker.RegisterCheck("exporter.traces", ok)

	got := checker.ListChecks()
	if len(got) != 2 || got[0] != "exporter.logs" || got[1] != "exporter.traces" {
		t.Errorf("ListChecks() = %v", got)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"a": func(context.Context) error { return nil },
				"b": func(context.Context) error { return errors.New("collector down") },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"b"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			got := checker.CheckReadiness(context.Background())
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(got.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if got.Checks[name].Status != StatusUnhealthy {
					t.Errorf("check %q = %+v, want unhealthy", name, got.Checks[name])
				}
				if got.Checks[name].Message == "" {
					t.Errorf("check %q has no message", name)
				}
			}
			if got.Timestamp.IsZero() {
				t.Error("timestamp not set")
			}
		})
	}
}

func TestCheckReadiness_RunsConcurrently(t *testing.T) {
	checker := New(time.Second)
	var running, peak atomic.Int32
	for _, name := range []string{"a", "b", "c", "d"} {
		checker.RegisterCheck(name, func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	start := time.Now()
	checker.CheckReadiness(context.Background())
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("checks took %v, expected them to overlap", elapsed)
	}
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d", peak.Load())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		fail       bool
		wantStatus int
		wantBody   bool
	}{
		{name: "ready", method: http.MethodGet, wantStatus: http.StatusOK, wantBody: true},
		{name: "degraded", method: http.MethodGet, fail: true, wantStatus: http.StatusServiceUnavailable, wantBody: true},
		{name: "head", method: http.MethodHead, wantStatus: http.StatusOK},
		{name: "post rejected", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.RegisterCheck("exporter", func(context.Context) error {
				if tt.fail {
					return errors.New("unreachable")
				}
				return nil
			})

			rr := httptest.NewRecorder()
			checker.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(tt.method, "/ready", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if !tt.wantBody {
				return
			}
			var body Readiness
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if _, ok := body.Checks["exporter"]; !ok {
				t.Errorf("body missing exporter check: %+v", body)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2026-01-01").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var info VersionInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := VersionInfo{Version: "1.2.3", Commit: "abc123", BuildTime: "2026-01-01", GoVersion: runtime.Version()}
	if info != want {
		t.Errorf("info = %+v, want %+v", info, want)
	}
}

func TestEndpointAddress(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "http://collector:4318", want: "collector:4318"},
		{endpoint: "http://collector", want: "collector:80"},
		{endpoint: "https://collector", want: "collector:443"},
		{endpoint: "http://[::1]:4317", want: "[::1]:4317"},
		{endpoint: "collector:4317", wantErr: true},
		{endpoint: "http://", wantErr: true},
		{endpoint: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := EndpointAddress(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EndpointAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EndpointAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	if err := ProbeEndpoint(t.Context(), "http://"+addr, time.Second); err != nil {
		t.Errorf("ProbeEndpoint() on a listener: %v", err)
	}

	ln.Close()
	if err := ProbeEndpoint(t.Context(), "http://"+addr, time.Second); err == nil {
		t.Error("expected an error once the listener is closed")
	}

	check := EndpointCheck("http://" + addr)
	if err := check(t.Context()); err == nil {
		t.Error("EndpointCheck should fail for a closed port")
	}
}
