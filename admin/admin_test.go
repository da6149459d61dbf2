package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimiter-service/admin"
	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/metrics"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
	"github.com/jassus213/ratelimiter-service/store"
)

func TestSurface_UpdateConfigChangesRegistry(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	recorder := metrics.NewRecorder(s, nil)
	surface := admin.New(s, registry, recorder, "memory")

	require.NoError(t, surface.UpdateConfig(ctx, 25, 30*time.Second))
	assert.Equal(t, config.Limits{Limit: 25, Window: 30 * time.Second}, registry.Current(ctx))
}

func TestSurface_ResetClearsRateLimitKeysAndCounters(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	recorder := metrics.NewRecorder(s, nil)
	surface := admin.New(s, registry, recorder, "memory")

	require.NoError(t, s.Set(ctx, ratelimiter.FixedWindowKey("alice"), "3", 0))
	recorder.Observe(ctx, "alice")
	recorder.Reject(ctx)
	require.NoError(t, surface.UpdateConfig(ctx, 25, 30*time.Second))

	require.NoError(t, surface.Reset(ctx))

	_, found, err := s.Get(ctx, ratelimiter.FixedWindowKey("alice"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.Get(ctx, ratelimiter.ConfigKey)
	require.NoError(t, err)
	assert.False(t, found, "config:rate_limit must be absent after reset")

	snapshot, err := recorder.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, metrics.Snapshot{}, snapshot)
}

func TestSurface_ResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	recorder := metrics.NewRecorder(s, nil)
	surface := admin.New(s, registry, recorder, "memory")

	require.NoError(t, surface.Reset(ctx))
	require.NoError(t, surface.Reset(ctx))
}

func TestSurface_HealthReportsBackendName(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	recorder := metrics.NewRecorder(s, nil)
	surface := admin.New(s, registry, recorder, "memory")

	health := surface.CheckHealth(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Connected)
	assert.Equal(t, "memory", health.Backend)
}

func TestSurface_MonitorEchoesConfigPerAlgorithm(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	registry := config.NewRegistry(ctx, s, config.Limits{Limit: 42, Window: time.Minute})
	recorder := metrics.NewRecorder(s, nil)
	surface := admin.New(s, registry, recorder, "memory")

	snapshot, err := surface.Monitor(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.AlgorithmData, 5)
	assert.Equal(t, int64(42), snapshot.AlgorithmData[ratelimiter.TokenBucket].Limit)
	assert.Equal(t, int64(60), snapshot.AlgorithmData[ratelimiter.TokenBucket].Window)
}
