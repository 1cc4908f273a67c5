package telemetry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyInitialized is returned by Init when the signal already has a
// provider. The existing provider is left in place.
var ErrAlreadyInitialized = errors.New("telemetry provider already initialized")

// BootstrapError reports a provider that could not be built. It is fatal to
// startup.
type BootstrapError struct {
	// Signal is the pipeline being built, empty for shared setup such as
	// configuration or the resource.
	Signal Signal
	Err    error
}

func (e *BootstrapError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("telemetry bootstrap failed: %v", e.Err)
	}
	return fmt.Sprintf("telemetry bootstrap failed for %s: %v", e.Signal, e.Err)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}

// ShutdownError collects the providers that failed to flush or shut down.
type ShutdownError struct {
	Errors map[Signal]error
}

func (e *ShutdownError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, s := range Signals {
		if err, ok := e.Errors[s]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", s, err))
		}
	}
	return "telemetry shutdown failed: " + strings.Join(parts, "; ")
}

func (e *ShutdownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, s := range Signals {
		if err, ok := e.Errors[s]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}
