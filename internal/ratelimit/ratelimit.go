// Package ratelimit provides request-admission throttling for the Service,
// adapted from the teacher's backpressure kernel. It governs whether a
// request is admitted at all — it never inspects or caches a check/expand
// answer, so it carries no bearing on the engine's caching Non-goal.
package ratelimit

import (
	"context"
	"errors"
)

// ErrRateLimited is returned by Limiter.Allow when the caller identified by
// key has exceeded its policy. It is deliberately not one of authz.Error's
// four kinds: admission control is a concern layered in front of the
// engine, not a property of the policy/tuple model.
var ErrRateLimited = errors.New("ratelimit: request rejected, rate limit exceeded")

// Policy configures a token bucket: refill rate in requests per second and
// maximum burst capacity.
type Policy struct {
	RPS   float64
	Burst int
}

// Limiter admits or rejects a request identified by an arbitrary key (an
// actor id, a namespace, or a fixed global key for a single shared bucket).
type Limiter interface {
	Allow(ctx context.Context, key string) error
}
