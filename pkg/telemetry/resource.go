package telemetry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"demo-observe/observe/pkg/config"
)

// DefaultServiceVersion is reported when neither the configuration nor the
// build sets a version.
const DefaultServiceVersion = "dev"

// NewResource describes this process to the collector. Every call gets a
// fresh service.instance.id.
func NewResource(ctx context.Context, cfg config.TelemetryConfig) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = DefaultServiceVersion
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
			semconv.ServiceInstanceID(uuid.NewString()),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
