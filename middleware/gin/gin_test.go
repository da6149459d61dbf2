package gin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimiter-service/config"
	ginlimiter "github.com/jassus213/ratelimiter-service/middleware/gin"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
	"github.com/jassus213/ratelimiter-service/store"
)

func TestRateLimiter_SetsHeadersAndBlocksOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 1, Window: time.Minute})
	engine := ratelimiter.NewFixedWindowEngine(s)

	r := gin.New()
	r.Use(ginlimiter.RateLimiter(engine, registry))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
