package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware attaches a request-scoped logger to the request context and logs
// each completed request. Server errors log at warn level.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := logger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"remote":     r.RemoteAddr,
			})
			reqLogger.Debug("Request started")

			ctx := (&CtxLogger{reqLogger}).WithContext(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := map[string]interface{}{
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			}
			// The route pattern is only known after routing.
			if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
				fields["route"] = rc.RoutePattern()
			}

			done := reqLogger.WithFields(fields)
			if ww.Status() >= http.StatusInternalServerError {
				done.Warn("Request failed")
				return
			}
			done.Info("Request completed")
		})
	}
}
