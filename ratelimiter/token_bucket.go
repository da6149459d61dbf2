package ratelimiter

import (
	"context"
	"math"
	"time"
)

// TokenBucketEngine implements the Token Bucket algorithm:
// bucket capacity equals limit, refill rate is limit/window tokens per
// second, and the read-refill-decrement-write sequence executes as one
// atomic store operation so concurrent admissions can't both observe
// the same pre-refill token count.
type TokenBucketEngine struct {
	Store Store
	Clock Clock
}

// NewTokenBucketEngine returns a TokenBucketEngine backed by store.
func NewTokenBucketEngine(store Store) *TokenBucketEngine {
	return &TokenBucketEngine{Store: store, Clock: RealClock}
}

func (e *TokenBucketEngine) Algorithm() Algorithm { return TokenBucket }

func (e *TokenBucketEngine) Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error) {
	key := TokenBucketKey(id)
	now := float64(e.Clock.Now().UnixNano()) / 1e9
	refillPerSecond := float64(limit) / window.Seconds()

	allowed, tokensAfter, err := e.Store.EvalTokenBucket(ctx, key, now, refillPerSecond, limit, window)
	if err != nil {
		return Result{}, err
	}

	remaining := int64(math.Max(0, math.Floor(tokensAfter)))

	var resetAfter time.Duration
	if !allowed {
		secondsToWait := (1.0 - tokensAfter) / refillPerSecond
		if secondsToWait < 0 {
			secondsToWait = 0
		}
		resetAfter = time.Duration(secondsToWait * float64(time.Second))
	}

	return Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}, nil
}
