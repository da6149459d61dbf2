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

func TestSlidingWindowCounterEngine_AdmitsUpToLimitWithinSlice(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	// Nothing was admitted in the previous slice, so its weighted count
	// is zero and this test exercises only the current slice's counter.
	clock := ratelimiter.NewManualClock(time.Unix(1000, 0))
	engine := &ratelimiter.SlidingWindowCounterEngine{Store: s, Clock: clock}

	for i := 0; i < 2; i++ {
		result, err := engine.Admit(ctx, "alice", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := engine.Admit(ctx, "alice", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestSlidingWindowCounterEngine_PreviousSliceWeightsIntoEstimate(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)
	clock := ratelimiter.NewManualClock(time.Unix(1000, 0))
	engine := &ratelimiter.SlidingWindowCounterEngine{Store: s, Clock: clock}

	// Fill the slice starting at t=1000 to its limit of 4.
	for i := 0; i < 4; i++ {
		result, err := engine.Admit(ctx, "bob", 4, time.Second)
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	// Halfway into the next slice, the previous slice still weighs in
	// at half its count (4 * 0.5 = 2), so only two more requests clear
	// the limit-4 threshold before the weighted estimate catches up —
	// fewer than the four a freshly reset window would allow.
	clock.Advance(1500 * time.Millisecond)
	for i := 0; i < 2; i++ {
		result, err := engine.Admit(ctx, "bob", 4, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, err := engine.Admit(ctx, "bob", 4, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// Two full slices later, the filled slice has rolled out of the
	// weighting window entirely.
	clock.Advance(2 * time.Second)
	result, err = engine.Admit(ctx, "bob", 4, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
