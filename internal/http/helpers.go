package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fanrevenue/internal/bucket"
	"fanrevenue/internal/core"
	applog "fanrevenue/internal/log"
	"fanrevenue/internal/services"
)

// errBadRequest marks malformed path parameters or bodies.
var errBadRequest = errors.New("bad request")

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrNotAList),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, bucket.ErrInvalidKey):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.Is(err, services.ErrNotPersisted), errors.Is(err, services.ErrNoSnapshot):
		return http.StatusBadGateway, applog.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeError writes err verbatim with its mapped status and logs anything
// that is not a client error.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, errorType := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, errorType, op, nil)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
