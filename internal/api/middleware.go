package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// maxBodyBytes bounds request bodies; the largest legitimate body is an inline network.
const maxBodyBytes = 1 << 20

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs every request with its status and latency, recovers
// handler panics as 500s, and limits body size.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic in handler", "method", r.Method, "path", r.URL.Path, "err", err, "stack", string(debug.Stack()))
				writeError(rec, http.StatusInternalServerError, "internal server error")
			}
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}()
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(rec, r)
	})
}
