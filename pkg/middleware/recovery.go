package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"demo-observe/observe/pkg/telemetry/logging"
)

// Recovery recovers from panics in HTTP handlers and answers 500 Internal
// Server Error. The panic is logged with its stack trace; clients never
// see internal details.
//
// Example usage:
//
//	handler = Recovery(logger)(handler)
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"request_id", logging.GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
