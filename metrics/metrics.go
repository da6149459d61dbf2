// Package metrics records the global counters and active-identity set
// the Admin Surface's monitor endpoint reports. Recording is always
// best-effort: a store failure here must never block or fail the
// admission decision it's attached to.
package metrics

import (
	"context"

	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// Recorder increments the global request/rejection counters and
// tracks every identity ever observed.
type Recorder struct {
	Store  ratelimiter.Store
	Logger logging.Logger
}

// NewRecorder returns a Recorder backed by store, logging failures
// through logger (a no-op logger if nil).
func NewRecorder(store ratelimiter.Store, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	return &Recorder{Store: store, Logger: logger}
}

// Observe records that a request was seen from identity. Called once
// per request, before the algorithm engine is consulted.
func (r *Recorder) Observe(ctx context.Context, identity string) {
	if _, err := r.Store.Incr(ctx, ratelimiter.TotalRequestsKey, 0); err != nil {
		r.Logger.Errorf("metrics: failed to increment total_requests: %v", err)
	}
	if err := r.Store.SAdd(ctx, ratelimiter.ActiveIPsKey, identity); err != nil {
		r.Logger.Errorf("metrics: failed to record active identity %q: %v", identity, err)
	}
}

// Reject records that a request was denied.
func (r *Recorder) Reject(ctx context.Context) {
	if _, err := r.Store.Incr(ctx, ratelimiter.Total429sKey, 0); err != nil {
		r.Logger.Errorf("metrics: failed to increment total_429s: %v", err)
	}
}

// Snapshot is the point-in-time view of the global counters.
type Snapshot struct {
	TotalRequests int64
	Total429s     int64
	ActiveIPs     int64
}

// Read returns the current global counters. Missing keys read as zero.
func (r *Recorder) Read(ctx context.Context) (Snapshot, error) {
	requests, _, err := r.Store.Get(ctx, ratelimiter.TotalRequestsKey)
	if err != nil {
		return Snapshot{}, err
	}
	rejections, _, err := r.Store.Get(ctx, ratelimiter.Total429sKey)
	if err != nil {
		return Snapshot{}, err
	}
	activeIPs, err := r.Store.SCard(ctx, ratelimiter.ActiveIPsKey)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		TotalRequests: parseCounter(requests),
		Total429s:     parseCounter(rejections),
		ActiveIPs:     activeIPs,
	}, nil
}

func parseCounter(raw string) int64 {
	var n int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
