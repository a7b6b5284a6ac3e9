package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Local is a single-instance token-bucket Limiter: one golang.org/x/time/rate
// bucket per key, created lazily on first use. Suitable when the Service
// runs as a single process; see Redis for multi-instance deployments.
type Local struct {
	policy Policy

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewLocal builds a Local limiter applying policy uniformly to every key.
func NewLocal(policy Policy) *Local {
	return &Local{policy: policy, buckets: make(map[string]*rate.Limiter)}
}

func (l *Local) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.policy.RPS), l.policy.Burst)
		l.buckets[key] = b
	}
	return b
}

// Allow reports ErrRateLimited if key's bucket has no tokens left. It never
// blocks — admission decisions must be instantaneous.
func (l *Local) Allow(_ context.Context, key string) error {
	if !l.bucketFor(key).Allow() {
		return ErrRateLimited
	}
	return nil
}
