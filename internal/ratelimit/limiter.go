// Package ratelimit implements a Redis-backed fixed-window request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "llm-gateway:ratelimit"

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	Used    int64
	Limit   int64
	ResetAt time.Time
}

// Remaining returns how many requests are left in the current window.
func (d Decision) Remaining() int64 {
	return max(d.Limit-d.Used, 0)
}

// Limiter counts requests per client within a fixed window.
type Limiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter allowing limit requests per window.
func NewLimiter(rdb *redis.Client, limit int64, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{redis: rdb, limit: limit, window: window}
}

// Allow records one request for client at now and reports whether it fits
// within the window.
func (l *Limiter) Allow(ctx context.Context, client string, now time.Time) (Decision, error) {
	windowStart := now.UTC().Truncate(l.window)
	windowEnd := windowStart.Add(l.window)
	ttl := int64(windowEnd.Sub(now.UTC()).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	key := fmt.Sprintf("%s:%s:%d", keyPrefix, client, windowStart.Unix())
	used, err := incrWithTTLScript.Run(ctx, l.redis, []string{key}, ttl).Int64()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	return Decision{
		Allowed: used <= l.limit,
		Used:    used,
		Limit:   l.limit,
		ResetAt: windowEnd,
	}, nil
}
