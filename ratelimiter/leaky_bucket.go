package ratelimiter

import (
	"context"
	"time"
)

// LeakyBucketEngine implements the Leaky Bucket algorithm's admission
// half: push the current timestamp onto the per-identity queue,
// and if that overflows capacity, pop it back off and reject. The
// background Drainer (see package drainer) is what actually enforces
// the leak rate by removing items from the head of the queue.
//
// Unlike the other four engines, a store failure here rejects rather
// than fails open (an explicit exception to the otherwise fail-open default).
type LeakyBucketEngine struct {
	Store Store
	Clock Clock
}

// NewLeakyBucketEngine returns a LeakyBucketEngine backed by store.
func NewLeakyBucketEngine(store Store) *LeakyBucketEngine {
	return &LeakyBucketEngine{Store: store, Clock: RealClock}
}

func (e *LeakyBucketEngine) Algorithm() Algorithm { return LeakyBucket }

func (e *LeakyBucketEngine) Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error) {
	key := LeakyBucketKey(id)
	now := float64(e.Clock.Now().UnixNano()) / 1e9

	allowed, err := e.Store.EvalLeakyBucketEnqueue(ctx, key, ActiveLeakyBucketsKey, id, now, limit)
	if err != nil {
		return Result{}, ErrStoreUnavailable
	}

	leakRate := float64(limit) / window.Seconds()
	var resetAfter time.Duration
	if !allowed {
		resetAfter = time.Duration((1.0 / leakRate) * float64(time.Second))
	}

	return Result{
		Allowed:    allowed,
		Limit:      limit,
		ResetAfter: resetAfter,
	}, nil
}
