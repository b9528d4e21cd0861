package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CommandLimiter allows or denies a scheduler command using a sliding-window
// count in Redis. It guards mark_done, retry_occurrence, and
// recover_missed_tasks against request floods at the HTTP boundary; the
// core itself is never rate-limited.
type CommandLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
}

type slidingWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewCommandLimiter returns a Redis-backed sliding-window limiter. limit is
// the maximum number of commands allowed per window for a given key
// (typically a caller id or "<command>:<caller>").
func NewCommandLimiter(client *redis.Client, limit int, window time.Duration) CommandLimiter {
	return &slidingWindowLimiter{client: client, limit: limit, window: window}
}

func (r *slidingWindowLimiter) Limit() int { return r.limit }

// Allow returns true when the request is within the allowed rate, false
// when it should be rejected. It uses a Redis sorted set as a timestamp
// ring buffer, evicting entries that fall outside the window on every call.
func (r *slidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	rkey := "taskflow:ratelimit:" + key

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10)})
	countCmd := pipe.ZCard(ctx, rkey)
	pipe.Expire(ctx, rkey, r.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline for %q: %w", key, err)
	}

	return countCmd.Val() <= int64(r.limit), nil
}
