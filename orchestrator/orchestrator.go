// Package orchestrator dispatches an incoming request to the selected
// algorithm Engine, recording metrics around the decision. It is the
// single place that knows how to turn an identity, an algorithm name,
// and the current configuration into an admission Result.
package orchestrator

import (
	"context"

	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/metrics"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
)

// Orchestrator owns one Engine per algorithm and the shared registry
// and recorder every request consults.
type Orchestrator struct {
	engines  map[ratelimiter.Algorithm]ratelimiter.Engine
	registry *config.Registry
	recorder *metrics.Recorder
	logger   logging.Logger
}

// New returns an Orchestrator wired to the given engines, keyed by the
// algorithm they implement. Engines is expected to contain all five
// algorithms; a missing one simply can never be selected.
func New(engines []ratelimiter.Engine, registry *config.Registry, recorder *metrics.Recorder, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NoopLogger{}
	}
	byAlgorithm := make(map[ratelimiter.Algorithm]ratelimiter.Engine, len(engines))
	for _, e := range engines {
		byAlgorithm[e.Algorithm()] = e
	}
	return &Orchestrator{
		engines:  byAlgorithm,
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

// Decide records that a request was observed from identity, resolves
// algorithmName to a registered Engine (defaulting to Fixed Window for
// an unrecognized or empty name), and returns its admission decision.
//
// A store failure is interpreted as fail-open for every algorithm
// except Leaky Bucket, whose Engine already returns
// ratelimiter.ErrStoreUnavailable to signal its own fail-closed
// exception; Decide passes that exception through rather than masking
// it.
func (o *Orchestrator) Decide(ctx context.Context, identity, algorithmName string) (ratelimiter.Result, error) {
	o.recorder.Observe(ctx, identity)

	algo := ratelimiter.ParseAlgorithm(algorithmName)
	engine, ok := o.engines[algo]
	if !ok {
		engine, ok = o.engines[ratelimiter.FixedWindow]
		if !ok {
			return ratelimiter.Result{Allowed: true}, nil
		}
	}

	limits := o.registry.Current(ctx)
	result, err := engine.Admit(ctx, identity, limits.Limit, limits.Window)
	if err != nil {
		o.logger.Errorf("orchestrator: %s admission failed for %q: %v", algo, identity, err)
		if engine.Algorithm() == ratelimiter.LeakyBucket && err == ratelimiter.ErrStoreUnavailable {
			o.recorder.Reject(ctx)
			return ratelimiter.Result{Allowed: false, Limit: limits.Limit}, nil
		}
		// Every other algorithm fails open: an unreachable store must
		// never itself become the reason requests are rejected.
		return ratelimiter.Result{Allowed: true, Limit: limits.Limit}, nil
	}

	if !result.Allowed {
		o.recorder.Reject(ctx)
	}
	return result, nil
}
