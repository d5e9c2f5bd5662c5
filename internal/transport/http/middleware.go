package http

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware logs requests and responses
type LoggingMiddleware struct {
	logger  zerolog.Logger
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger zerolog.Logger, verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger:  logger.With().Str("component", "http").Logger(),
		verbose: verbose,
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture response details
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.body != nil {
		lrw.body.Write(b)
	}
	return lrw.ResponseWriter.Write(b)
}

// Middleware tags each request with an ID, attaches a request logger to its
// context and logs the outcome at debug level
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := l.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		if l.verbose && (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.Body != nil {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to read request body")
			} else {
				r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				if len(bodyBytes) > 0 {
					logger.Debug().Bytes("body", bodyBytes).Msg("request body")
				}
			}
		}

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		if l.verbose {
			lrw.body = &bytes.Buffer{}
		}

		next.ServeHTTP(lrw, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", lrw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request handled")

		if lrw.body != nil && lrw.body.Len() > 0 && lrw.statusCode >= http.StatusBadRequest {
			logger.Debug().Str("body", lrw.body.String()).Int("status", lrw.statusCode).Msg("error response body")
		}
	})
}
