package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fanrevenue/internal/analytics"
	"fanrevenue/internal/bucket"
	"fanrevenue/internal/core"
	applog "fanrevenue/internal/log"
	"fanrevenue/internal/services"
)

// BucketService is the application surface the handlers need.
type BucketService interface {
	Upload(ctx context.Context, creatorID, displayName string, year, month int, raws []core.RawRecord) (bucket.MonthlyBucket, error)
	Get(ctx context.Context, creatorID string, year, month int) (bucket.MonthlyBucket, error)
	ListByCreator(ctx context.Context, creatorID string) ([]bucket.MonthlyBucket, error)
	Delete(ctx context.Context, creatorID string, year, month int) (bool, error)
	Customers(ctx context.Context, key bucket.Key) (analytics.CustomerAnalysis, error)
	Calendar(ctx context.Context, creatorID string, year, month int) (analytics.Calendar, error)
	Dashboard(ctx context.Context, creatorID string, year, month int) (services.Dashboard, error)
}

var _ BucketService = (*services.BucketService)(nil)

// ReadinessCheck reports whether dependencies are reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	svc         BucketService
	ready       ReadinessCheck
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.Logger
	structured  *applog.StructuredLogger

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit sets the per-client write limit per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

func WithLogger(logger *applog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, svc BucketService, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		rateLimiter: newRateLimiter(defaultWritesPerMinute),
		metrics:     &securityMetrics{},
		logger:      applog.New(applog.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(applog.ComponentHTTP)
	s.structured = applog.NewStructuredLogger(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/creators/{creator}/buckets", s.withMiddleware(s.handleListBuckets))
	mux.HandleFunc("GET /api/creators/{creator}/buckets/{year}/{month}", s.withMiddleware(s.handleGetBucket))
	mux.HandleFunc("PUT /api/creators/{creator}/buckets/{year}/{month}", s.withMiddleware(s.handleUploadBucket))
	mux.HandleFunc("DELETE /api/creators/{creator}/buckets/{year}/{month}", s.withMiddleware(s.handleDeleteBucket))
	mux.HandleFunc("GET /api/creators/{creator}/buckets/{year}/{month}/customers", s.withMiddleware(s.handleCustomers))
	mux.HandleFunc("GET /api/creators/{creator}/calendar/{year}/{month}", s.withMiddleware(s.handleCalendar))
	mux.HandleFunc("GET /api/creators/{creator}/dashboard/{year}/{month}", s.withMiddleware(s.handleDashboard))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(s.logger)(applog.RequestIDMiddleware(generateRequestID)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withMiddleware adds security headers, write rate limiting and request
// logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		s.structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WithComponent(applog.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SecurityStats returns counters for rate limit hits and suspicious requests.
func (s *Server) SecurityStats() map[string]int64 {
	return map[string]int64{
		"rate_limit_hits":     s.metrics.rateLimitHitsCount(),
		"suspicious_requests": s.metrics.suspiciousCount(),
	}
}
