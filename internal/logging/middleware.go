package logging

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type attrsKey struct{}

// requestAttrs collects attributes handlers add to the request log line.
type requestAttrs struct {
	mu   sync.Mutex
	args []any
}

// AddAttrs attaches key/value pairs to the request's log line. It does
// nothing outside RequestLogger.
func AddAttrs(ctx context.Context, args ...any) {
	ra, ok := ctx.Value(attrsKey{}).(*requestAttrs)
	if !ok {
		return
	}
	ra.mu.Lock()
	ra.args = append(ra.args, args...)
	ra.mu.Unlock()
}

// RequestLogger is middleware that logs HTTP requests. Each logged request
// gets an id, taken from the incoming header when present, echoed back to the
// client.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip noisy paths
		if strings.HasPrefix(r.URL.Path, "/static/") || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		ra := &requestAttrs{args: []any{"request_id", id}}

		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), attrsKey{}, ra)))

		duration := time.Since(start)

		level := slog.LevelInfo
		if rw.status >= 500 {
			level = slog.LevelError
		} else if rw.status >= 400 {
			level = slog.LevelWarn
		}

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", duration.String(),
			"ip", r.RemoteAddr,
		}
		ra.mu.Lock()
		args = append(args, ra.args...)
		ra.mu.Unlock()

		slog.Log(r.Context(), level, "request", args...)
	})
}
