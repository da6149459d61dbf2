package ratelimiter

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// SlidingWindowLogEngine implements the Sliding Window Log algorithm:
// trim expired members, read cardinality, and conditionally add
// a new member scored at now — all inside a single atomic store call,
// since two concurrent admissions reading cardinality < limit before
// either adds would otherwise both be admitted.
type SlidingWindowLogEngine struct {
	Store Store
	Clock Clock

	seq atomic.Uint64
}

// NewSlidingWindowLogEngine returns a SlidingWindowLogEngine backed by store.
func NewSlidingWindowLogEngine(store Store) *SlidingWindowLogEngine {
	return &SlidingWindowLogEngine{Store: store, Clock: RealClock}
}

func (e *SlidingWindowLogEngine) Algorithm() Algorithm { return SlidingWindowLog }

func (e *SlidingWindowLogEngine) Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error) {
	key := SlidingWindowLogKey(id)
	now := float64(e.Clock.Now().UnixNano()) / 1e9
	windowSeconds := window.Seconds()

	// The member must be unique even when two admissions land in the
	// same fractional second; append a monotonic suffix to avoid
	// collisions in the sorted set.
	seq := e.seq.Add(1)
	member := strconv.FormatFloat(now, 'f', -1, 64) + ":" + strconv.FormatUint(seq, 10)

	allowed, err := e.Store.EvalSlidingWindowLog(ctx, key, now, windowSeconds, limit, member)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:    allowed,
		Limit:      limit,
		ResetAfter: window,
	}, nil
}
