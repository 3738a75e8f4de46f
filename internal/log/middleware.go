package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
	// RequestIDContextKey holds the request id set by RequestIDMiddleware.
	RequestIDContextKey ContextKey = "request_id"

	RequestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware tags the request logger and the response with a
// request id. A client-supplied X-Request-ID is kept when it is short
// printable ASCII; otherwise newID is called.
func RequestIDMiddleware(newID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if !validRequestID(requestID) {
				requestID = newID()
			}
			w.Header().Set(RequestIDHeader, requestID)

			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			ctx := WithLogger(r.Context(), logger)
			ctx = context.WithValue(ctx, RequestIDContextKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the id set by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPStart logs the start of an HTTP request at Debug.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.from(ctx).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.from(ctx).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogBucketUpserted logs a committed bucket upload
func (sl *StructuredLogger) LogBucketUpserted(ctx context.Context, creatorID string, year, month, records int, totalRevenue int64) {
	fields := NewFields().
		WithBucket(creatorID, year, month).
		WithOperation(OpUpload).
		ToSlice()

	fields = append(fields, FieldRecords, records, FieldTotalRevenue, totalRevenue)

	sl.from(ctx).InfoContext(ctx, "Bucket upserted", fields...)
}

// LogError logs an error with its category and operation.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation)

	sl.from(ctx).ErrorContext(ctx, msg, allFields.ToSlice()...)
}

// from prefers the request-scoped logger so request ids are kept.
func (sl *StructuredLogger) from(ctx context.Context) *Logger {
	if l, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return l
	}
	return sl.logger
}
