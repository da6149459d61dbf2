package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimiter-service/ratelimiter"
	"github.com/jassus213/ratelimiter-service/store"
)

func TestTokenBucketEngine_StartsFullAndDrains(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	clock := ratelimiter.NewManualClock(time.Unix(2000, 0))
	engine := &ratelimiter.TokenBucketEngine{Store: s, Clock: clock}

	// capacity 3, refill 3/10s: bucket starts full.
	for i := 0; i < 3; i++ {
		result, err := engine.Admit(ctx, "alice", 3, 10*time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := engine.Admit(ctx, "alice", 3, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestTokenBucketEngine_RefillsOverTime(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	clock := ratelimiter.NewManualClock(time.Unix(2000, 0))
	engine := &ratelimiter.TokenBucketEngine{Store: s, Clock: clock}

	for i := 0; i < 2; i++ {
		_, err := engine.Admit(ctx, "bob", 2, time.Second)
		require.NoError(t, err)
	}
	result, err := engine.Admit(ctx, "bob", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	clock.Advance(time.Second)

	result, err = engine.Admit(ctx, "bob", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
