package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter(t *testing.T, cfg Config, now *time.Time) *Limiter {
	t.Helper()
	l := New(cfg, WithClock(func() time.Time { return *now }))
	t.Cleanup(l.Stop)
	return l
}

func TestAllowWithinLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 5, Window: time.Minute}
	for i := 0; i < 5; i++ {
		admitted, retryAfter := l.Allow("client:POST", rule)
		assert.True(t, admitted, "request %d should be admitted", i+1)
		assert.Zero(t, retryAfter)
	}
}

func TestAllowRejectsOverLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 2, Window: time.Minute}
	l.Allow("k", rule)
	l.Allow("k", rule)

	admitted, retryAfter := l.Allow("k", rule)
	assert.False(t, admitted)
	assert.Equal(t, 60, retryAfter)
}

func TestRetryAfterShrinksAsWindowAges(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 1, Window: time.Minute}
	l.Allow("k", rule)

	now = now.Add(45 * time.Second)
	admitted, retryAfter := l.Allow("k", rule)
	assert.False(t, admitted)
	assert.Equal(t, 15, retryAfter)

	// Partial seconds round up.
	now = now.Add(14*time.Second + 500*time.Millisecond)
	admitted, retryAfter = l.Allow("k", rule)
	assert.False(t, admitted)
	assert.Equal(t, 1, retryAfter)
}

func TestWindowRollsOverLazily(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 1, Window: time.Minute}
	l.Allow("k", rule)

	admitted, _ := l.Allow("k", rule)
	require.False(t, admitted)

	now = now.Add(61 * time.Second)
	admitted, retryAfter := l.Allow("k", rule)
	assert.True(t, admitted, "request after window expiry starts a fresh window")
	assert.Zero(t, retryAfter)

	// Fresh window carries a fresh count of one.
	admitted, _ = l.Allow("k", rule)
	assert.False(t, admitted)
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 1, Window: time.Minute}
	l.Allow("a:POST", rule)

	admitted, _ := l.Allow("a:GET", rule)
	assert.True(t, admitted, "different method class is a different window")

	admitted, _ = l.Allow("b:POST", rule)
	assert.True(t, admitted, "different client is a different window")
}

func TestSweepPurgesExpiredEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, DefaultConfig(), &now)

	rule := Rule{Limit: 1, Window: time.Minute}
	l.Allow("a", rule)
	l.Allow("b", rule)
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.sweep()
	assert.Zero(t, l.Len())
}

func newTestRouter(l *Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	router.POST("/confessions", l.Middleware(), ok)
	router.GET("/confessions", l.Middleware(), ok)
	router.POST("/broadcast", l.Override(2, 5*time.Minute), ok)
	return router
}

func doRequest(router *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestMiddlewareAppliesMethodClassRules(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, Config{
		Post: Rule{Limit: 2, Window: time.Minute},
		Get:  Rule{Limit: 3, Window: time.Minute},
	}, &now)
	router := newTestRouter(l)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/confessions", "1.2.3.4").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodPost, "/confessions", "1.2.3.4").Code)

	// GET rides its own window.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/confessions", "1.2.3.4").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodGet, "/confessions", "1.2.3.4").Code)
}

func TestRejectionBodyShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, Config{
		Post: Rule{Limit: 1, Window: time.Minute},
		Get:  Rule{Limit: 1, Window: time.Minute},
	}, &now)
	router := newTestRouter(l)

	doRequest(router, http.MethodPost, "/confessions", "1.2.3.4")
	w := doRequest(router, http.MethodPost, "/confessions", "1.2.3.4")

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var body struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.StatusCode)
	assert.Equal(t, "Too many requests, please try again later", body.Message)
	assert.Equal(t, 60, body.RetryAfter)
}

func TestOverrideIsIndependentOfMethodClassWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := testLimiter(t, Config{
		Post: Rule{Limit: 1, Window: time.Minute},
		Get:  Rule{Limit: 1, Window: time.Minute},
	}, &now)
	router := newTestRouter(l)

	// Exhaust the POST method-class window.
	doRequest(router, http.MethodPost, "/confessions", "1.2.3.4")
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodPost, "/confessions", "1.2.3.4").Code)

	// Override route still has its own budget.
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/broadcast", "1.2.3.4").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/broadcast", "1.2.3.4").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, http.MethodPost, "/broadcast", "1.2.3.4").Code)
}

func TestClientIDResolution(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1"},
			want:    "10.0.0.1",
		},
		{
			name:    "x-forwarded-for chain takes first",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 172.16.0.1"},
			want:    "10.0.0.1",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "10.0.0.9"},
			want:    "10.0.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientID(c))
		})
	}
}
