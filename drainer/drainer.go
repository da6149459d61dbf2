// Package drainer implements the Leaky Bucket's background draining
// worker: a single cooperative task that removes queued requests at
// the configured leak rate for every active bucket.
package drainer

import (
	"context"
	"time"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// Tick is the drainer's polling interval, kept well under a second so
// queued requests leak out smoothly rather than in visible bursts.
const Tick = 500 * time.Millisecond

// Drainer processes every bucket named in active_leaky_buckets once
// per tick, leaking min(elapsed*limit/window, queue length) entries
// from the head of each. It never admits or rejects requests; it only
// enforces the leak rate by removing items.
type Drainer struct {
	Store    ratelimiter.Store
	Registry *config.Registry
	Logger   logging.Logger

	lastDrain map[string]time.Time
}

// New returns a Drainer backed by store and registry.
func New(store ratelimiter.Store, registry *config.Registry, logger logging.Logger) *Drainer {
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	return &Drainer{
		Store:     store,
		Registry:  registry,
		Logger:    logger,
		lastDrain: make(map[string]time.Time),
	}
}

// Run ticks until ctx is canceled. It is meant to be started as its
// own goroutine with the service and to run for the process lifetime;
// exactly one Drainer may run per store.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.DrainOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// DrainOnce runs a single drain pass over every active bucket. Run
// calls this once per tick; it is exported so tests can drive a pass
// directly instead of waiting on the real ticker.
func (d *Drainer) DrainOnce(ctx context.Context) {
	identities, err := d.Store.SMembers(ctx, ratelimiter.ActiveLeakyBucketsKey)
	if err != nil {
		d.Logger.Errorf("drainer: failed to list active buckets: %v", err)
		return
	}

	limits := d.Registry.Current(ctx)
	leakRate := float64(limits.Limit) / limits.Window.Seconds()
	now := time.Now()

	for _, id := range identities {
		if err := d.drainBucket(ctx, id, leakRate, now); err != nil {
			d.Logger.Errorf("drainer: failed to drain bucket %q: %v", id, err)
		}
	}
}

// drainBucket leaks the number of entries owed since this identity's
// last drain, then removes the identity from the active set once its
// queue is empty. A failure here is logged by the caller and must not
// stop the rest of the tick from processing.
func (d *Drainer) drainBucket(ctx context.Context, id string, leakRate float64, now time.Time) error {
	last, seen := d.lastDrain[id]
	if !seen {
		last = now
		d.lastDrain[id] = now
	}
	elapsed := now.Sub(last).Seconds()

	key := ratelimiter.LeakyBucketKey(id)
	if owed := int64(elapsed * leakRate); owed > 0 {
		if _, err := d.Store.LPop(ctx, key, owed); err != nil {
			return err
		}
		// Advance the baseline only by the time the popped entries
		// account for, so the fractional remainder carries into later
		// passes and leak rates below one entry per tick still drain.
		d.lastDrain[id] = last.Add(time.Duration(float64(owed) / leakRate * float64(time.Second)))
	}

	// Check unconditionally: the queue may already be empty (e.g. a
	// bucket that finished draining between ticks) even when nothing
	// was owed this pass.
	length, err := d.Store.LLen(ctx, key)
	if err != nil {
		return err
	}
	if length == 0 {
		if err := d.Store.SRem(ctx, ratelimiter.ActiveLeakyBucketsKey, id); err != nil {
			return err
		}
		delete(d.lastDrain, id)
	}
	return nil
}
