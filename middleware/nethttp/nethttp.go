// Package nethttp provides the same rate-limiting middleware as
// middleware/gin, for plain net/http handlers.
package nethttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/identity"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// KeyFunc extracts the rate-limit key from an incoming request.
type KeyFunc func(r *http.Request) string

// ErrorHandler controls the response written when a request is denied.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, result ratelimiter.Result)

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
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, result ratelimiter.Result) {
			retryAfter := int(result.ResetAfter.Seconds())
			if retryAfter <= 0 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		},
		Logger: logging.NoopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Middleware wraps next, admitting requests through engine using the
// registry's current limits.
func Middleware(engine ratelimiter.Engine, registry *config.Registry, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)
			limits := registry.Current(r.Context())

			result, err := engine.Admit(r.Context(), key, limits.Limit, limits.Window)
			if err != nil {
				cfg.Logger.Errorf("middleware: admission failed for %q: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

			if !result.Allowed {
				cfg.Logger.Debugf("middleware: denied %q, remaining %d/%d", key, result.Remaining, result.Limit)
				cfg.ErrorHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
