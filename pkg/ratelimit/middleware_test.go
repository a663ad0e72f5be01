package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/ping", RateLimitTypeHealth},
		{"/api/v1/seats/admin/sweeper", RateLimitTypeAdmin},
		{"/api/v1/seats/reserve", RateLimitTypeHold},
		{"/api/v1/seats/release", RateLimitTypeHold},
		{"/api/v1/seats/confirm", RateLimitTypeHold},
		{"/api/v1/seats/reservations/:id/payment", RateLimitTypeHold},
		{"/api/v1/seats/event/:eventId/map", RateLimitTypePublic},
		{"/api/v1/seats/reservations/:id", RateLimitTypePublic},
		{"/swagger/*any", RateLimitTypeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, bucketFor(tt.path))
		})
	}
}

func TestGetLimitAndWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, &Config{
		Enabled:         true,
		DefaultRequests: 60,
		PublicRequests:  100,
		HoldRequests:    20,
		AdminRequests:   200,
		HealthRequests:  300,
		WhitelistedIPs:  []string{"10.0.0.1"},
	})

	assert.Equal(t, 20, rl.getLimit(RateLimitTypeHold))
	assert.Equal(t, 100, rl.getLimit(RateLimitTypePublic))
	assert.Equal(t, 300, rl.getLimit(RateLimitTypeHealth))
	assert.True(t, rl.isWhitelisted("10.0.0.1"))
	assert.False(t, rl.isWhitelisted("10.0.0.2"))
}

func TestMiddleware_AllowsWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(nil, &Config{Enabled: true, WindowDuration: time.Minute, HoldRequests: 20})

	engine := gin.New()
	engine.Use(Middleware(rl))
	engine.POST("/api/v1/seats/reserve", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/seats/reserve", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
}

func newLimitedEngine(client *redis.Client, holdRequests int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(client, &Config{Enabled: true, WindowDuration: time.Minute, HoldRequests: holdRequests, PublicRequests: 100})

	engine := gin.New()
	engine.Use(Middleware(rl))
	engine.POST("/api/v1/seats/reserve", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return engine
}

func reserveFrom(engine *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/reserve", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestMiddleware_SlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	engine := newLimitedEngine(client, 2)

	first := reserveFrom(engine, "203.0.113.7")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, reserveFrom(engine, "203.0.113.7").Code)

	limited := reserveFrom(engine, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	// Buckets are per client
	assert.Equal(t, http.StatusNoContent, reserveFrom(engine, "203.0.113.8").Code)

	keys := mr.Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "ticketing:ratelimit:203.0.113.7:hold", keys[0])
}

func TestMiddleware_BackendFailureAllows(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	engine := newLimitedEngine(client, 1)
	mr.Close()

	w := reserveFrom(engine, "203.0.113.7")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
