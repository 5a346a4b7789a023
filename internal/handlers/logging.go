package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/petermazzocco/go-microblog-api/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request. Requests slower than slow are
// logged at warn level. Headers are never logged.
func RequestLogger(log logrus.FieldLogger, slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := log.WithFields(logrus.Fields{
				"method":     r.Method,
				"route":      metrics.RoutePattern(r),
				"path":       r.URL.Path,
				"status":     status,
				"duration":   duration,
				"remote_ip":  r.RemoteAddr,
				"request_id": middleware.GetReqID(r.Context()),
			})
			if duration > slow {
				entry.Warn("Slow request detected")
				return
			}
			entry.Info("Request completed")
		})
	}
}
