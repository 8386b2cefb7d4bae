package middleware

import (
	"net/http"
	"time"

	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

// Logging writes one access line per request once the handler returns.
// 5xx responses log at warn; the handler has already logged the cause.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			aw := &accessWriter{ResponseWriter: w}
			next.ServeHTTP(aw, r.WithContext(ctx))

			status := aw.statusCode()
			ctx = logg.WithFields(ctx, map[string]any{
				"status":      status,
				"bytes":       aw.bytes,
				"duration_ms": time.Since(started).Milliseconds(),
				"remote_ip":   clientIP(r),
			})
			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request failed")
			case status >= http.StatusBadRequest:
				logg.Info(ctx, "request rejected")
			default:
				logg.Info(ctx, "request served")
			}
		})
	}
}

type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (a *accessWriter) WriteHeader(code int) {
	if a.status == 0 {
		a.status = code
	}
	a.ResponseWriter.WriteHeader(code)
}

func (a *accessWriter) Write(b []byte) (int, error) {
	if a.status == 0 {
		a.status = http.StatusOK
	}
	n, err := a.ResponseWriter.Write(b)
	a.bytes += n
	return n, err
}

func (a *accessWriter) statusCode() int {
	if a.status == 0 {
		return http.StatusOK
	}
	return a.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (a *accessWriter) Unwrap() http.ResponseWriter {
	return a.ResponseWriter
}
