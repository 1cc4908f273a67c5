package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"demo-observe/observe/pkg/telemetry/logging"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds a client supplied request ID.
	maxRequestIDLength = 128
)

// RequestID assigns every request an ID and stores it in the request
// context, where the log bridge picks it up. A client supplied
// X-Request-ID is kept; otherwise a random UUID is generated. The ID is
// echoed in the response headers.
//
// Example usage:
//
//	handler = RequestID(handler)
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}
