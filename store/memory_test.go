package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jassus213/ratelimiter-service/store"
)

func TestMemoryStore_IncrAndGetShareOneNamespace(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	n, err := s.Incr(ctx, "global:total_requests", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "global:total_requests", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	raw, found, err := s.Get(ctx, "global:total_requests")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", raw)
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	ok, err := s.SetNX(ctx, "key", "first", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "key", "second", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, found, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", raw)
}

func TestMemoryStore_ZSetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.ZAdd(ctx, "zkey", 1.0, "a"))
	require.NoError(t, s.ZAdd(ctx, "zkey", 2.0, "b"))
	require.NoError(t, s.ZAdd(ctx, "zkey", 3.0, "c"))

	count, err := s.ZCard(ctx, "zkey")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, s.ZRemRangeByScore(ctx, "zkey", 1.5))

	count, err = s.ZCard(ctx, "zkey")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStore_EvalSlidingWindowLogExpiresLikeRedisTTL(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	// window=0 gives the minimum TTL the algorithm ever sets (window+1s),
	// keeping this test's sleep as short as the formula allows.
	allowed, err := s.EvalSlidingWindowLog(ctx, "swl:alice", 1000.0, 0.0, 10, "1000:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	count, err := s.ZCard(ctx, "swl:alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	time.Sleep(1050 * time.Millisecond)

	// The key must have expired on its own, the same way Redis's EXPIRE
	// would reap it, rather than living forever in the in-process store.
	count, err = s.ZCard(ctx, "swl:alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemoryStore_ListLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.RPush(ctx, "lkey", "1"))
	require.NoError(t, s.RPush(ctx, "lkey", "2"))
	require.NoError(t, s.RPush(ctx, "lkey", "3"))

	length, err := s.LLen(ctx, "lkey")
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)

	popped, err := s.LPop(ctx, "lkey", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, popped)

	length, err = s.LLen(ctx, "lkey")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestMemoryStore_SetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.SAdd(ctx, "skey", "alice"))
	require.NoError(t, s.SAdd(ctx, "skey", "bob"))

	card, err := s.SCard(ctx, "skey")
	require.NoError(t, err)
	assert.Equal(t, int64(2), card)

	members, err := s.SMembers(ctx, "skey")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)

	require.NoError(t, s.SRem(ctx, "skey", "alice"))
	card, err = s.SCard(ctx, "skey")
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)
}

func TestMemoryStore_KeysByPatternMatchesPrefix(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "ratelimit:fixed_window:alice", "x", 0))
	require.NoError(t, s.Set(ctx, "ratelimit:fixed_window:bob", "x", 0))
	require.NoError(t, s.Set(ctx, "other:key", "x", 0))

	keys, err := s.KeysByPattern(ctx, "ratelimit:fixed_window:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ratelimit:fixed_window:alice", "ratelimit:fixed_window:bob"}, keys)
}

func TestMemoryStore_ExpireEvictsKey(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "key", "value", 0))
	require.NoError(t, s.Expire(ctx, "key", 20*time.Millisecond))

	time.Sleep(40 * time.Millisecond)

	_, found, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory(ctx, 0)

	require.NoError(t, s.Set(ctx, "a", "1", 0))
	require.NoError(t, s.Set(ctx, "b", "2", 0))
	require.NoError(t, s.Delete(ctx, "a", "b"))

	_, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)
}
