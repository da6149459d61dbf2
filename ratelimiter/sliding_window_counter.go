package ratelimiter

import (
	"context"
	"math"
	"time"
)

// SlidingWindowCounterEngine implements the Sliding Window Counter
// algorithm: a weighted estimate of the previous and current
// discrete slice counters, approximating a true sliding window under
// the assumption of uniform arrival within the previous slice.
type SlidingWindowCounterEngine struct {
	Store Store
	Clock Clock
}

// NewSlidingWindowCounterEngine returns a SlidingWindowCounterEngine backed by store.
func NewSlidingWindowCounterEngine(store Store) *SlidingWindowCounterEngine {
	return &SlidingWindowCounterEngine{Store: store, Clock: RealClock}
}

func (e *SlidingWindowCounterEngine) Algorithm() Algorithm { return SlidingWindowCounter }

func (e *SlidingWindowCounterEngine) Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error) {
	now := float64(e.Clock.Now().UnixNano()) / 1e9
	windowSeconds := window.Seconds()

	currentSlice := SliceIndex(now, windowSeconds)
	previousSlice := currentSlice - 1
	offset := math.Mod(now, windowSeconds) / windowSeconds

	currKey := SlidingWindowCounterKey(id, currentSlice)
	prevKey := SlidingWindowCounterKey(id, previousSlice)

	allowed, err := e.Store.EvalSlidingWindowCounter(ctx, currKey, prevKey, offset, limit, 2*window)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed: allowed,
		Limit:   limit,
	}, nil
}
