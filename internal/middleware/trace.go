// Package middleware holds the HTTP middleware shared by every route:
// request tracing, security headers and per-IP throttling.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Trace assigns a request id, stores a request-scoped logger in the context
// and logs the completed request with its status and duration.
func Trace(logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentHTTP)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := logger.With(log.FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			ctx = log.NewContext(ctx, reqLogger)
			r = r.WithContext(ctx)

			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case rw.status >= 500:
				level = slog.LevelError
			case rw.status >= 400:
				level = slog.LevelWarn
			}

			reqLogger.Log(ctx, level, "HTTP request completed",
				log.FieldComponent, log.ComponentHTTP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldQuery, r.URL.RawQuery,
				log.FieldStatusCode, rw.status,
				log.FieldDuration, time.Since(start).Milliseconds(),
				log.FieldClientIP, ClientIP(r),
				log.FieldUserAgent, r.UserAgent(),
				log.FieldSuccess, rw.status < 400,
			)
		})
	}
}

// RequestID returns the id assigned by Trace, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ClientIP returns the host part of RemoteAddr. Run chi's RealIP first when
// behind a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
