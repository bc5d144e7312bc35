package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestClientLimiterRefillsAndReportsWait(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newClientLimiter(config.DashboardConfig{Rate: 1, Burst: 1, IdleMinutes: 10}, clock.Now)

	ok, _ := limiter.allow("10.0.0.1")
	require.True(t, ok)

	ok, wait := limiter.allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	clock.now = clock.now.Add(time.Second)
	ok, _ = limiter.allow("10.0.0.1")
	assert.True(t, ok, "a rejected request must not consume the refill")
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newClientLimiter(config.DashboardConfig{Rate: 1, Burst: 5, IdleMinutes: 10}, clock.Now)

	for _, client := range []string{"a", "b", "c"} {
		limiter.allow(client)
	}
	require.Equal(t, 3, limiter.size())

	clock.now = clock.now.Add(9 * time.Minute)
	limiter.allow("c")
	assert.Equal(t, 3, limiter.size(), "nothing is idle long enough yet")

	clock.now = clock.now.Add(2 * time.Minute)
	limiter.allow("d")
	assert.Equal(t, 2, limiter.size(), "a and b idled past the ttl")
}

func TestRateLimitedResponse(t *testing.T) {
	h := newHarness(t, 1)
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/guilds/g1/game-roles", "").Code)

	rec := h.do(http.MethodGet, "/api/guilds/g1/game-roles", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error": "rate limit exceeded"}`, rec.Body.String())
}

func TestAllowOrigins(t *testing.T) {
	handler := allowOrigins([]string{"https://dash.example.com/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/guilds/g1/config", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://dash.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	rec = preflight("https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/g1/config", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
