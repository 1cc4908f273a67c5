package metrics

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
)

// Middleware records request count, error count and duration for every
// request handled by next. A panicking handler is recorded as a 500.
func Middleware(inst *Instruments) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.Metrics{Code: http.StatusOK}
			start := time.Now()

			defer func() {
				if p := recover(); p != nil {
					inst.RecordRequest(r.Context(), r.Method, r.URL.Path, http.StatusInternalServerError, time.Since(start))
					panic(p)
				}
				inst.RecordRequest(r.Context(), r.Method, r.URL.Path, m.Code, m.Duration)
			}()

			m.CaptureMetrics(w, func(ww http.ResponseWriter) {
				next.ServeHTTP(ww, r)
			})
		})
	}
}
