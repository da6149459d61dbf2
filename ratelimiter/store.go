// Package ratelimiter defines the algorithm engines and the Store
// abstraction they share. It has no knowledge of HTTP, Redis, or any
// particular logging backend; those are wired in by the store and
// httpapi packages.
package ratelimiter

import (
	"context"
	"time"
)

// Store is the key-value abstraction every engine is built on. It must
// expose atomic counters, sorted sets, lists, sets, hashes, TTL, and a
// handful of scripted multi-step operations that have to execute as a
// single atomic unit against the backend. RedisStore and MemoryStore
// are the two implementations; both must satisfy the same semantics.
type Store interface {
	// Incr atomically increments key and returns the post-increment value.
	// If this is the first increment (new value is 1), ttl is applied.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Expire sets (or refreshes) the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining time-to-live on key and whether key
	// exists with a TTL set. A key with no TTL (or that doesn't exist)
	// reports found=false.
	TTL(ctx context.Context, key string) (ttl time.Duration, found bool, err error)

	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, with an optional ttl (ttl<=0 means no expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only if key is absent, returning whether it was set.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// ZAdd adds member to the sorted set at key with the given score.
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRemRangeByScore removes every member with score in (-inf, max].
	ZRemRangeByScore(ctx context.Context, key string, max float64) error
	// ZCard returns the cardinality of the sorted set at key.
	ZCard(ctx context.Context, key string) (int64, error)

	// RPush appends value to the list at key.
	RPush(ctx context.Context, key string, value string) error
	// LPop removes and returns up to count elements from the head of the list.
	LPop(ctx context.Context, key string, count int64) ([]string, error)
	// LLen returns the length of the list at key.
	LLen(ctx context.Context, key string) (int64, error)

	// SAdd adds member to the set at key.
	SAdd(ctx context.Context, key string, member string) error
	// SRem removes member from the set at key.
	SRem(ctx context.Context, key string, member string) error
	// SMembers returns every member of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SCard returns the cardinality of the set at key.
	SCard(ctx context.Context, key string) (int64, error)

	// HGetAll returns every field of the hash at key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet writes fields into the hash at key and (if ttl>0) refreshes its TTL.
	HSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// Delete removes every given key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// KeysByPattern returns every key matching pattern (glob-style, "*" wildcard).
	KeysByPattern(ctx context.Context, pattern string) ([]string, error)

	// EvalSlidingWindowLog performs the four-step sliding window log
	// admission as a single atomic unit: trim expired members,
	// read cardinality, conditionally add the new member, refresh TTL.
	EvalSlidingWindowLog(ctx context.Context, key string, now, window float64, limit int64, member string) (bool, error)

	// EvalSlidingWindowCounter reads the previous and current slice
	// counters, computes the weighted estimate, and conditionally
	// increments the current slice counter, atomically.
	EvalSlidingWindowCounter(ctx context.Context, currKey, prevKey string, offset float64, limit int64, ttl time.Duration) (bool, error)

	// EvalTokenBucket performs the read-refill-decrement-write sequence
	// of the token bucket algorithm atomically, returning whether
	// a token was taken and the token count immediately after the call.
	EvalTokenBucket(ctx context.Context, key string, now, refillPerSecond float64, capacity int64, ttl time.Duration) (bool, float64, error)

	// EvalLeakyBucketEnqueue appends now to the queue at key, and if the
	// resulting length exceeds limit, removes it again and rejects;
	// otherwise records the identity as active.
	EvalLeakyBucketEnqueue(ctx context.Context, key, activeSetKey, identity string, now float64, limit int64) (bool, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
