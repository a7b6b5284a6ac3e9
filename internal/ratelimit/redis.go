package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript runs the refill-then-consume token bucket atomically so
// concurrent callers across instances never race on a shared bucket.
//
// KEYS[1] = bucket key
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity (max tokens)
// ARGV[3] = cost (tokens to consume)
// ARGV[4] = current unix time, seconds as a float
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return {allowed, tokens}
`)

// Redis is a multi-instance token-bucket Limiter backed by a shared Redis
// server: every instance consults the same bucket via an atomic Lua script.
type Redis struct {
	client *redis.Client
	policy Policy
}

// NewRedis builds a Redis limiter applying policy uniformly to every key.
func NewRedis(client *redis.Client, policy Policy) *Redis {
	return &Redis{client: client, policy: policy}
}

// Allow runs the token-bucket script for key and reports ErrRateLimited when
// it is exhausted, or a wrapped error if Redis itself is unreachable.
func (r *Redis) Allow(ctx context.Context, key string) error {
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := tokenBucketScript.Run(ctx, r.client, []string{"ratelimit:" + key}, r.policy.RPS, r.policy.Burst, 1, now).Result()
	if err != nil {
		return fmt.Errorf("ratelimit: redis script: %w", err)
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return fmt.Errorf("ratelimit: unexpected redis script response %v", res)
	}
	allowed, _ := results[0].(int64)
	if allowed != 1 {
		return ErrRateLimited
	}
	return nil
}
