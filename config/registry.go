// Package config holds the process-wide rate limit configuration:
// {limit, window}. Reads are lock-free; writes are serialized and
// persisted to the store so other instances pick up the change on
// their next read.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// Limits is the current {limit, window} pair every engine consults.
type Limits struct {
	Limit  int64         `json:"limit"`
	Window time.Duration `json:"window"`
}

// wireLimits is the JSON-friendly representation persisted to the
// store; time.Duration marshals as nanoseconds, which is awkward to
// read back from another process as plain JSON, so the persisted
// window is kept in whole seconds instead.
type wireLimits struct {
	Limit  int64 `json:"limit"`
	Window int64 `json:"window"`
}

// Registry is the single-writer/multi-reader configuration holder.
// Reads via Current never block on Update.
type Registry struct {
	store   ratelimiter.Store
	key     string
	current atomic.Value // Limits
}

// NewRegistry creates a Registry seeded with defaults, then attempts to
// load config:rate_limit from store (falling back to defaults if the
// key is absent or the store is unreachable). It persists to the
// well-known config:rate_limit key shared by every instance of the
// service's main rate limit configuration; use NewRegistryWithKey for
// an independent configuration value backed by its own store key.
func NewRegistry(ctx context.Context, store ratelimiter.Store, defaults Limits) *Registry {
	return NewRegistryWithKey(ctx, store, ratelimiter.ConfigKey, defaults)
}

// NewRegistryWithKey creates a Registry like NewRegistry, but persists
// to and reads from storeKey instead of the shared config:rate_limit
// key. This lets a process hold more than one independently-configured
// Registry against the same store (e.g. this service's own admin-guard
// limiter) without one's Update clobbering the other's Current.
func NewRegistryWithKey(ctx context.Context, store ratelimiter.Store, storeKey string, defaults Limits) *Registry {
	r := &Registry{store: store, key: storeKey}
	r.current.Store(defaults)

	if raw, found, err := store.Get(ctx, storeKey); err == nil && found {
		if limits, perr := parseWire(raw); perr == nil {
			r.current.Store(limits)
		}
	}

	return r
}

// Current returns the live {limit, window}. It re-reads this
// Registry's store key on every call so that a value committed by
// another instance's Update is observed without waiting for a
// restart; if the store is unreachable or the key is absent, it falls
// back to the last value this instance successfully loaded or
// committed.
func (r *Registry) Current(ctx context.Context) Limits {
	if raw, found, err := r.store.Get(ctx, r.key); err == nil && found {
		if limits, perr := parseWire(raw); perr == nil {
			r.current.Store(limits)
			return limits
		}
	}
	return r.current.Load().(Limits)
}

// Update validates and commits new limits, persisting them to the
// store so other instances observe the change on their next read.
func (r *Registry) Update(ctx context.Context, limits Limits) error {
	if limits.Limit < 1 {
		return fmt.Errorf("limit must be >= 1, got %d", limits.Limit)
	}
	if limits.Window < time.Second {
		return fmt.Errorf("window must be >= 1 second, got %s", limits.Window)
	}

	raw, err := json.Marshal(wireLimits{Limit: limits.Limit, Window: int64(limits.Window.Seconds())})
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.key, string(raw), 0); err != nil {
		return err
	}

	r.current.Store(limits)
	return nil
}

func parseWire(raw string) (Limits, error) {
	var w wireLimits
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Limits{}, err
	}
	return Limits{Limit: w.Limit, Window: time.Duration(w.Window) * time.Second}, nil
}
