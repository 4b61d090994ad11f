package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"clinic-booking/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware tags each request with an id, logs it, and records latency
// against the route template so path ids do not explode metric cardinality.
type LoggingMiddleware struct {
	log     *logrus.Logger
	metrics *metrics.BookingMetrics
}

func NewLoggingMiddleware(log *logrus.Logger, m *metrics.BookingMetrics) *LoggingMiddleware {
	return &LoggingMiddleware{log: log, metrics: m}
}

func (m *LoggingMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		m.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(rec.status), elapsed.Seconds())

		entry := m.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Error("HTTP request failed")
			return
		}
		entry.Info("HTTP request")
	})
}

// GetRequestIDFromContext extracts the request id set by LoggingMiddleware
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
