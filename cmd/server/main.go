// Command server runs the rate limiting HTTP service: a sample
// endpoint protected by a selectable algorithm, and an admin surface
// for configuration, reset, health, and monitoring.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jassus213/ratelimiter-service/admin"
	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/drainer"
	"github.com/jassus213/ratelimiter-service/httpapi"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/logging/zapadapter"
	"github.com/jassus213/ratelimiter-service/metrics"
	"github.com/jassus213/ratelimiter-service/orchestrator"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
	"github.com/jassus213/ratelimiter-service/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger, err := newZapLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapadapter.New(zapLogger)

	limiterStore, backendName := newStore(ctx, logger)

	defaultLimit := envInt64("RATE_LIMIT_DEFAULT_LIMIT", 100)
	defaultWindow := time.Duration(envInt64("RATE_LIMIT_DEFAULT_WINDOW_SECONDS", 60)) * time.Second
	registry := config.NewRegistry(ctx, limiterStore, config.Limits{Limit: defaultLimit, Window: defaultWindow})

	recorder := metrics.NewRecorder(limiterStore, logger)

	engines := []ratelimiter.Engine{
		ratelimiter.NewFixedWindowEngine(limiterStore),
		ratelimiter.NewSlidingWindowLogEngine(limiterStore),
		ratelimiter.NewSlidingWindowCounterEngine(limiterStore),
		ratelimiter.NewTokenBucketEngine(limiterStore),
		ratelimiter.NewLeakyBucketEngine(limiterStore),
	}
	orc := orchestrator.New(engines, registry, recorder, logger)

	adm := admin.New(limiterStore, registry, recorder, backendName)

	adminRegistry := config.NewRegistryWithKey(ctx, limiterStore, "config:admin_rate_limit", config.Limits{Limit: 20, Window: time.Minute})
	adminEngine := ratelimiter.NewFixedWindowEngine(limiterStore)

	drain := drainer.New(limiterStore, registry, logger)
	go drain.Run(ctx)

	router := httpapi.NewRouter(orc, adm, adminEngine, adminRegistry, logger)

	addr := envString("HTTP_ADDR", ":8080")
	logger.Infof("listening on %s (store=%s)", addr, backendName)
	if err := router.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}

// newStore picks between the in-process fake store and a networked
// Redis store based on USE_FAKE_STORE / REDIS_ADDR.
func newStore(ctx context.Context, logger logging.Logger) (ratelimiter.Store, string) {
	if envBool("USE_FAKE_STORE", false) {
		return store.NewMemory(ctx, 10*time.Minute), "memory"
	}

	addr := envString("REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Errorf("could not reach redis at %s (%v); falling back to in-process store", addr, err)
		return store.NewMemory(ctx, 10*time.Minute), "memory"
	}
	return store.NewRedis(client), "redis"
}

func newZapLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if l, err := zap.ParseAtomicLevel(level); err == nil && level != "" {
		cfg.Level = l
	}
	return cfg.Build()
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
