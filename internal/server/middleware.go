package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Cloudhabil/phi-engine/pkg/observability"
)

// maxBodyLogLen is the maximum length of a logged request body.
const maxBodyLogLen = 200

// logRequests logs every request with its status and duration. Server
// errors log at ERROR, requests slower than the slow threshold at WARN and
// the rest at DEBUG, where the truncated request body is included.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var body string
		if r.Body != nil && s.logger.Enabled(r.Context(), slog.LevelDebug) {
			data, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			r.Body = io.NopCloser(bytes.NewReader(data))
			body = truncate(string(data), maxBodyLogLen)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, duration)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request failed", attrs...)
		case duration > s.slow:
			s.logger.Warn("slow request", attrs...)
		default:
			if body != "" {
				attrs = append(attrs, "body", body)
			}
			s.logger.Debug("request completed", attrs...)
		}
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// truncate shortens s to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
