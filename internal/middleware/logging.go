package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
)

// RequestLogger writes one structured line per request. Query strings are
// omitted because the WebSocket endpoint carries the session token there.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				kv := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", chimw.GetReqID(r.Context()),
				}
				switch {
				case status >= 500:
					log.Error("request", kv...)
				case status >= 400:
					log.Warn("request", kv...)
				default:
					log.Info("request", kv...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
