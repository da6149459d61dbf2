// Package admin implements the operational surface alongside the rate
// limited endpoint: configuration updates, a full reset, a health
// probe, and a monitoring snapshot.
package admin

import (
	"context"
	"time"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/metrics"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// Surface backs the admin HTTP handlers.
type Surface struct {
	Store     ratelimiter.Store
	Registry  *config.Registry
	Recorder  *metrics.Recorder
	BackendIs string // "memory" or "redis", reported by Health
}

// New returns a Surface over the given dependencies.
func New(store ratelimiter.Store, registry *config.Registry, recorder *metrics.Recorder, backendName string) *Surface {
	return &Surface{Store: store, Registry: registry, Recorder: recorder, BackendIs: backendName}
}

// UpdateConfig validates and commits new global limits.
func (s *Surface) UpdateConfig(ctx context.Context, limit int64, window time.Duration) error {
	return s.Registry.Update(ctx, config.Limits{Limit: limit, Window: window})
}

// Reset deletes every rate-limiting key this service owns, including
// the global counter keys, so the counters read as zero afterwards. It
// is idempotent: running it against an already-empty namespace is a
// no-op.
func (s *Surface) Reset(ctx context.Context) error {
	var keys []string
	for _, pattern := range ratelimiter.ResetNamespaces {
		matched, err := s.Store.KeysByPattern(ctx, pattern)
		if err != nil {
			return err
		}
		keys = append(keys, matched...)
	}

	keys = append(keys,
		ratelimiter.ActiveLeakyBucketsKey,
		ratelimiter.ConfigKey,
		ratelimiter.TotalRequestsKey,
		ratelimiter.Total429sKey,
		ratelimiter.ActiveIPsKey,
	)

	if len(keys) == 0 {
		return nil
	}
	return s.Store.Delete(ctx, keys...)
}

// Health is the result of a liveness probe against the backing store.
type Health struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Backend   string `json:"backend"`
}

// CheckHealth probes the store and reports its reachability.
func (s *Surface) CheckHealth(ctx context.Context) Health {
	err := s.Store.Ping(ctx)
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	return Health{
		Status:    status,
		Connected: err == nil,
		Backend:   s.BackendIs,
	}
}

// AlgorithmSnapshot is the read-only echo of the live configuration
// reported per algorithm name. Configuration is global, so every
// algorithm currently reports the same {limit, window}; this shape
// exists so a monitoring dashboard can key off algorithm name without
// this service inventing per-algorithm state it does not otherwise
// track.
type AlgorithmSnapshot struct {
	Limit  int64 `json:"limit"`
	Window int64 `json:"window_seconds"`
}

// MonitorSnapshot is the full /api/monitor response body.
type MonitorSnapshot struct {
	TotalRequests int64                                      `json:"total_requests"`
	Total429s     int64                                      `json:"total_429s"`
	ActiveIPs     int64                                       `json:"active_ips"`
	AlgorithmData map[ratelimiter.Algorithm]AlgorithmSnapshot `json:"algorithm_data"`
}

var allAlgorithms = []ratelimiter.Algorithm{
	ratelimiter.FixedWindow,
	ratelimiter.SlidingWindowLog,
	ratelimiter.SlidingWindowCounter,
	ratelimiter.TokenBucket,
	ratelimiter.LeakyBucket,
}

// Monitor returns the current global counters and a per-algorithm
// configuration echo.
func (s *Surface) Monitor(ctx context.Context) (MonitorSnapshot, error) {
	snapshot, err := s.Recorder.Read(ctx)
	if err != nil {
		return MonitorSnapshot{}, err
	}

	limits := s.Registry.Current(ctx)
	data := make(map[ratelimiter.Algorithm]AlgorithmSnapshot, len(allAlgorithms))
	for _, algo := range allAlgorithms {
		data[algo] = AlgorithmSnapshot{Limit: limits.Limit, Window: int64(limits.Window.Seconds())}
	}

	return MonitorSnapshot{
		TotalRequests: snapshot.TotalRequests,
		Total429s:     snapshot.Total429s,
		ActiveIPs:     snapshot.ActiveIPs,
		AlgorithmData: data,
	}, nil
}
