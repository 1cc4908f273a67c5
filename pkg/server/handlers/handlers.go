package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"demo-observe/observe/pkg/telemetry/tracing"
)

// Response bodies.
const (
	RootBody   = "root"
	HealthBody = "UP"
)

// HealthHandler answers liveness checks with "UP".
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, HealthBody)
}

// ErrorHandler always answers 503 Service Unavailable.
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler.
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// ServeHTTP implements http.Handler.
func (h *ErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
}

// RootHandler calls the service's own health endpoint with the request's
// context and answers "root" once it replied. The call goes through a
// traced client, so the health request joins the caller's trace.
type RootHandler struct {
	client *http.Client
	target func() string
	logger *slog.Logger
}

// NewRootHandler creates a root handler. target returns the base URL of
// the service, known only once it listens.
func NewRootHandler(client *http.Client, target func() string, logger *slog.Logger) *RootHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootHandler{client: client, target: target, logger: logger}
}

// ServeHTTP implements http.Handler. A failed downstream call answers 502
// and marks the server span as failed.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.callHealth(r); err != nil {
		tracing.SetError(trace.SpanFromContext(ctx), err)
		h.logger.ErrorContext(ctx, "downstream call failed", "error", err)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, RootBody)
}

func (h *RootHandler) callHealth(r *http.Request) error {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.target()+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build downstream request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("downstream request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downstream answered %d", resp.StatusCode)
	}
	return nil
}
