package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/store"
)

func TestRegistry_SeedsDefaultsWhenStoreEmpty(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	r := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	assert.Equal(t, config.Limits{Limit: 10, Window: time.Minute}, r.Current(ctx))
}

func TestRegistry_LoadsPersistedLimitsOnStartup(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	seed := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	require.NoError(t, seed.Update(ctx, config.Limits{Limit: 50, Window: 30 * time.Second}))

	r := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	assert.Equal(t, config.Limits{Limit: 50, Window: 30 * time.Second}, r.Current(ctx))
}

func TestRegistry_ObservesUpdateFromAnotherInstanceSharingTheStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	instanceA := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})
	instanceB := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})

	require.NoError(t, instanceA.Update(ctx, config.Limits{Limit: 3, Window: 10 * time.Second}))

	// instanceB never called Update itself; it must still observe the
	// change on its next read because both share the same store.
	assert.Equal(t, config.Limits{Limit: 3, Window: 10 * time.Second}, instanceB.Current(ctx))
}

func TestRegistry_UpdateRejectsInvalidLimits(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	r := config.NewRegistry(ctx, s, config.Limits{Limit: 10, Window: time.Minute})

	err := r.Update(ctx, config.Limits{Limit: 0, Window: time.Minute})
	assert.Error(t, err)

	err = r.Update(ctx, config.Limits{Limit: 10, Window: 100 * time.Millisecond})
	assert.Error(t, err)

	assert.Equal(t, config.Limits{Limit: 10, Window: time.Minute}, r.Current(ctx))
}
