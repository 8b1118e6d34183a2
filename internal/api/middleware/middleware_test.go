package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/netenum/internal/auth"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/metrics/mocks"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(logging.DefaultConfig(), &strings.Builder{})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIsExcluded(t *testing.T) {
	exclude := []string{"/", "/api/v1/health", "/swagger/"}

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/api/v1/health", true},
		{"/api/v1/health/deep", false},
		{"/swagger/", true},
		{"/swagger/index.html", true},
		{"/swaggerx", false},
		{"/api/v1/scan", false},
		{"/anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExcluded(tt.path, exclude))
		})
	}
}

func TestAuthentication(t *testing.T) {
	tokens := auth.NewTokenSet("s3cret")
	handler := Authentication(tokens, []string{"/api/v1/health", "/swagger/"}, testLogger())(okHandler)

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantDetail string
	}{
		{name: "valid token", method: http.MethodGet, path: "/api/v1/state", header: "Bearer s3cret", wantStatus: http.StatusOK},
		{name: "missing header", method: http.MethodGet, path: "/api/v1/state", wantStatus: http.StatusUnauthorized,
			wantDetail: "Invalid or missing Authorization header"},
		{name: "wrong scheme", method: http.MethodGet, path: "/api/v1/state", header: "Basic s3cret", wantStatus: http.StatusUnauthorized,
			wantDetail: "Invalid or missing Authorization header"},
		{name: "invalid token", method: http.MethodGet, path: "/api/v1/state", header: "Bearer nope", wantStatus: http.StatusUnauthorized,
			wantDetail: "Invalid token"},
		{name: "excluded path", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK},
		{name: "excluded prefix", method: http.MethodGet, path: "/swagger/doc.json", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, path: "/api/v1/scan", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				body := decode(t, rec)
				assert.Equal(t, "Unauthorized", body["error"])
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
		})
	}
}

func TestAuthenticationDisabledWithoutTokens(t *testing.T) {
	handler := Authentication(auth.NewTokenSet(), nil, testLogger())(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	d := rl.Take("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, now.Add(10*time.Second), d.Reset)

	now = now.Add(4 * time.Second)
	d = rl.Take("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	now = now.Add(time.Second)
	d = rl.Take("a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 5*time.Second, d.RetryAfter)

	assert.True(t, rl.Allow("b"), "clients are limited independently")

	now = now.Add(5*time.Second + time.Millisecond)
	assert.True(t, rl.Take("a").Allowed, "oldest request left the window")

	now = now.Add(time.Minute)
	rl.Cleanup()
	rl.mutex.Lock()
	assert.Empty(t, rl.requests)
	rl.mutex.Unlock()
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(1, 60*time.Second)
	limiter.now = func() time.Time { return now }
	handler := RateLimit(limiter, testLogger())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.RemoteAddr = "10.1.1.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(now.Add(60*time.Second).Unix(), 10), rec.Header().Get("X-RateLimit-Reset"))

	now = now.Add(15500 * time.Millisecond)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))

	body := decode(t, rec)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, "Limit of 1 request per 60 seconds", body["detail"])
	assert.InDelta(t, 44.5, body["retry_after"], 0.001)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1", "198.51.100.4"},
		{"remote addr", nil, "192.168.1.5:40000", "192.168.1.5"},
		{"ipv6 remote addr", nil, "[fe80::1]:40000", "fe80::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestLoggingSetsRequestID(t *testing.T) {
	var seen string
	handler := Logging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.True(t, strings.HasPrefix(seen, "req_"))
	_, err := uuid.Parse(strings.TrimPrefix(seen, "req_"))
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	handler := Recovery(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().IncrementHTTPRequests(http.MethodGet, "/api/v1/state", "200")
	rec.EXPECT().RecordHTTPDuration(http.MethodGet, "/api/v1/state", gomock.Any())

	router := mux.NewRouter()
	router.Use(Metrics(rec))
	router.Handle("/api/v1/state", okHandler).Methods(http.MethodGet)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponseWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrap(rec)
	_, _ = rw.Write([]byte("line\n"))
	rw.Flush()

	assert.True(t, rec.Flushed)
	assert.Equal(t, 5, rw.size)
	assert.Same(t, rw, wrap(rw))
}
