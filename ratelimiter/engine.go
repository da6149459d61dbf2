package ratelimiter

import (
	"context"
	"time"
)

// Engine is the interface every algorithm decider satisfies. Limit and
// window are passed on every call rather than fixed at construction, so
// a single long-lived Engine always reflects the latest committed
// configuration from the registry (the dynamic reconfiguration path).
type Engine interface {
	Algorithm() Algorithm
	Admit(ctx context.Context, id string, limit int64, window time.Duration) (Result, error)
}
