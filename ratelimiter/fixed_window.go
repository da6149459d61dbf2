package ratelimiter

import (
	"context"
	"math"
	"time"
)

// FixedWindowEngine implements the Fixed Window algorithm:
// increment the counter keyed on the identity, setting its TTL only on
// the first increment, and admit iff the new value is within limit.
//
// The boundary anomaly this allows — up to 2*limit admissions in a
// window that straddles the reset instant — is a known property of the
// algorithm, not a bug to fix here.
type FixedWindowEngine struct {
	Store Store
	Clock Clock
}

// NewFixedWindowEngine returns a FixedWindowEngine backed by store,
// using the real wall clock.
func NewFixedWindowEngine(store Store) *FixedWindowEngine {
	return &FixedWindowEngine{Store: store, Clock: RealClock}
}

func (e *FixedWindowEngine) Algorithm() Algorithm { return FixedWindow }

func (e *FixedWindowEngine) Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error) {
	key := FixedWindowKey(id)
	count, err := e.Store.Incr(ctx, key, window)
	if err != nil {
		return Result{}, err
	}

	allowed := count <= limit
	remaining := int64(math.Max(0, float64(limit-count)))

	// ResetAfter reports the counter key's actual remaining TTL (set by
	// Incr on the first increment) rather than an epoch-aligned window
	// boundary, since the window started whenever this identity's first
	// request in it landed, not at a fixed clock boundary.
	resetAfter := window
	if ttl, found, ttlErr := e.Store.TTL(ctx, key); ttlErr == nil && found {
		resetAfter = ttl
	}

	return Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}, nil
}
