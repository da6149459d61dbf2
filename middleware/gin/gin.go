// Package gin provides a Gin middleware adapter that enforces a single
// rate-limiting Engine in front of a route group. It is used to guard
// this service's own admin endpoints with a plain Fixed Window limit,
// independent of the per-request algorithm the main endpoint exposes.
package gin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/identity"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// KeyFunc extracts the rate-limit key from an incoming request.
type KeyFunc func(r *http.Request) string

// ErrorHandler controls the response written when a request is denied.
type ErrorHandler func(c *gin.Context, result ratelimiter.Result)

// Config holds the middleware's configurable parameters, set via
// functional options.
type Config struct {
	KeyFunc      KeyFunc
	ErrorHandler ErrorHandler
	Logger       logging.Logger
}

// Option applies a setting to Config.
type Option func(*Config)

// WithKeyFunc overrides the default identity.Extract-based key function.
func WithKeyFunc(f KeyFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.KeyFunc = f
		}
	}
}

// WithErrorHandler overrides the default 429 response.
func WithErrorHandler(f ErrorHandler) Option {
	return func(c *Config) {
		if f != nil {
			c.ErrorHandler = f
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		KeyFunc: func(r *http.Request) string { return identity.Extract(r) },
		ErrorHandler: func(c *gin.Context, result ratelimiter.Result) {
			retryAfter := int(result.ResetAfter.Seconds())
			if retryAfter <= 0 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatus(http.StatusTooManyRequests)
		},
		Logger: logging.NoopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// RateLimiter returns a gin middleware that admits requests through a
// single engine using the registry's current limits, setting the
// standard X-RateLimit-* headers on every response.
func RateLimiter(engine ratelimiter.Engine, registry *config.Registry, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts...)

	return func(c *gin.Context) {
		key := cfg.KeyFunc(c.Request)
		limits := registry.Current(c.Request.Context())

		result, err := engine.Admit(c.Request.Context(), key, limits.Limit, limits.Window)
		if err != nil {
			cfg.Logger.Errorf("middleware: admission failed for %q: %v", key, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

		if !result.Allowed {
			cfg.Logger.Debugf("middleware: denied %q, remaining %d/%d", key, result.Remaining, result.Limit)
			cfg.ErrorHandler(c, result)
			return
		}

		c.Next()
	}
}
