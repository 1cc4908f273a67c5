package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "observe.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuildValidationReport(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantValid  bool
		wantErrors []string
	}{
		{
			name: "valid file",
			content: `
server:
  port: 8080
telemetry:
  exporter:
    protocol: stdout
`,
			wantValid: true,
		},
		{
			name: "invalid fields",
			content: `
server:
  port: 70000
telemetry:
  logging:
    level: loud
`,
			wantErrors: []string{"server.port", "telemetry.logging.level"},
		},
		{
			name:       "malformed yaml",
			content:    "server: [",
			wantErrors: []string{"failed to parse"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildValidationReport(context.Background(), writeConfig(t, tt.content), false)
			if r.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (errors %v)", r.Valid, tt.wantValid, r.Errors)
			}
			joined := strings.Join(r.Errors, "\n")
			for _, want := range tt.wantErrors {
				if !strings.Contains(joined, want) {
					t.Errorf("errors %q missing %q", joined, want)
				}
			}
		})
	}
}

func TestBuildValidationReport_Defaults(t *testing.T) {
	r := buildValidationReport(context.Background(), "", false)
	if !r.Valid || r.Config != "(defaults)" {
		t.Errorf("report = %+v", r)
	}
	if !strings.Contains(r.String(), "is valid") {
		t.Errorf("String() = %q", r.String())
	}
}

func TestBuildValidationReport_Probe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := closed.Addr().String()
	closed.Close()

	tests := []struct {
		name      string
		content   string
		wantValid bool
		wantExp   string
	}{
		{
			name:      "reachable",
			content:   "telemetry:\n  exporter:\n    endpoint: http://" + ln.Addr().String() + "\n",
			wantValid: true,
			wantExp:   "reachable",
		},
		{
			name:    "unreachable",
			content: "telemetry:\n  exporter:\n    endpoint: http://" + closedAddr + "\n    probe_timeout: 500ms\n",
			wantExp: "unreachable",
		},
		{
			name:      "stdout",
			content:   "telemetry:\n  exporter:\n    protocol: stdout\n",
			wantValid: true,
			wantExp:   "nothing to probe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildValidationReport(context.Background(), writeConfig(t, tt.content), true)
			if r.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", r.Valid, tt.wantValid, r.Errors)
			}
			if !strings.Contains(r.Exporter, tt.wantExp) {
				t.Errorf("Exporter = %q, want it to contain %q", r.Exporter, tt.wantExp)
			}
		})
	}
}
