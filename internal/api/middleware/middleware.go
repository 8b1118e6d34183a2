// Package middleware provides HTTP middleware for the netenum API server:
// request IDs and logging, metrics, panic recovery, bearer token
// authentication and per-client rate limiting.
package middleware

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/anstrom/netenum/internal/auth"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics"
)

// ContextKey represents a context key type.
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey ContextKey = "request_id"

	bearerPrefix = "Bearer "
)

// RateLimiter is an in-memory sliding window limiter keyed by client.
type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

// Decision is the outcome of RateLimiter.Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest request in the window expires.
	Reset time.Time
	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Take records a request from key unless the window is full.
func (rl *RateLimiter) Take(key string) Decision {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	requests := rl.prune(rl.requests[key], now)

	d := Decision{Limit: rl.limit}
	if len(requests) >= rl.limit {
		rl.requests[key] = requests
		d.Reset = requests[0].Add(rl.window)
		d.RetryAfter = d.Reset.Sub(now)
		return d
	}

	requests = append(requests, now)
	rl.requests[key] = requests

	d.Allowed = true
	d.Remaining = rl.limit - len(requests)
	d.Reset = requests[0].Add(rl.window)
	return d
}

// Allow reports whether a request from key is allowed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.Take(key).Allowed
}

func (rl *RateLimiter) prune(requests []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(requests) && !requests[i].After(cutoff) {
		i++
	}
	return requests[i:]
}

// Cleanup removes clients without requests in the current window.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, requests := range rl.requests {
		if filtered := rl.prune(requests, now); len(filtered) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = filtered
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// Logging assigns a request ID and logs every request once it completes.
func Logging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := generateRequestID()
			r = r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID))
			w.Header().Set("X-Request-ID", requestID)

			wrapped := wrap(w)
			next.ServeHTTP(wrapped, r)

			if logger != nil {
				logger.Info("HTTP request",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"status_code", wrapped.statusCode,
					"response_size", wrapped.size,
					"duration_ms", time.Since(start).Milliseconds(),
					"remote_addr", ClientIP(r))
			}
		})
	}
}

// Metrics records request counts and latencies. The path label is the
// matched route template so unknown paths do not create new series.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			if recorder == nil {
				return
			}
			path := "unmatched"
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}
			recorder.IncrementHTTPRequests(r.Method, path, strconv.Itoa(wrapped.statusCode))
			recorder.RecordHTTPDuration(r.Method, path, time.Since(start))
		})
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r)
					logger.Error("HTTP request panic recovered",
						"request_id", requestID,
						"method", r.Method,
						"path", r.URL.Path,
						"panic", err,
						"stack", string(debug.Stack()),
						"remote_addr", ClientIP(r))

					writeJSON(w, http.StatusInternalServerError, map[string]any{
						"error":      "Internal server error",
						"request_id": requestID,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// IsExcluded reports whether path bypasses authentication. Entries ending
// in "/" (other than "/" itself) match by prefix, others match exactly.
func IsExcluded(path string, excludePaths []string) bool {
	for _, ex := range excludePaths {
		if ex != "/" && strings.HasSuffix(ex, "/") {
			if strings.HasPrefix(path, ex) {
				return true
			}
			continue
		}
		if path == ex {
			return true
		}
	}
	return false
}

// Authentication requires a valid bearer token on every request except
// CORS preflights and excluded paths. An empty token set disables it.
func Authentication(tokens *auth.TokenSet, excludePaths []string, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil || tokens.Empty() || r.Method == http.MethodOptions || IsExcluded(r.URL.Path, excludePaths) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				logger.Warn(fmt.Sprintf("Authentication failed: IP: %s", ClientIP(r)),
					"request_id", GetRequestID(r), "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error":  "Unauthorized",
					"detail": "Invalid or missing Authorization header",
				})
				return
			}

			if !tokens.Verify(strings.TrimPrefix(header, bearerPrefix)) {
				logger.Warn(fmt.Sprintf("Authentication failed: Invalid token - IP: %s", ClientIP(r)),
					"request_id", GetRequestID(r), "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error":  "Unauthorized",
					"detail": "Invalid token",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects clients exceeding limiter's window with 429. Every
// response carries the X-RateLimit-* headers.
func RateLimit(limiter *RateLimiter, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)
			d := limiter.Take(clientIP)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

			if !d.Allowed {
				logger.Warn("Rate limit exceeded",
					"request_id", GetRequestID(r),
					"client_ip", clientIP,
					"path", r.URL.Path,
					"limit", d.Limit,
					"window", limiter.window)

				retryAfter := math.Round(d.RetryAfter.Seconds()*100) / 100
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       "Rate limit exceeded",
					"detail":      limitDetail(d.Limit, limiter.window),
					"retry_after": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limitDetail(limit int, window time.Duration) string {
	noun := "requests"
	if limit == 1 {
		noun = "request"
	}
	secs := int(window.Seconds())
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Limit of %d %s per %d %s", limit, noun, secs, unit)
}

// responseWriter wraps http.ResponseWriter to capture response information.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Unwrap lets http.ResponseController reach the Flusher and Hijacker of
// the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush implements http.Flusher for streamed responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker for websocket upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// generateRequestID returns a random UUID prefixed with "req_".
func generateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context.
func GetRequestID(r *http.Request) string {
	if requestID, ok := r.Context().Value(RequestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}

// ClientIP extracts the client address from X-Forwarded-For, X-Real-IP or
// the connection, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
