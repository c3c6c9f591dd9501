// Package cache holds the redis backed per-user rate limiter used on post
// submission and flagging.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var rateLimitPrefix = "ratelimit/"

type RateLimiter struct {
	Client *redis.Client
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(redisURL string, window time.Duration) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	return newRateLimiter(rdb, window), nil
}

func newRateLimiter(rdb *redis.Client, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &RateLimiter{Client: rdb, window: window, now: time.Now}
}

// Allow counts one action by subject in the current fixed window and reports
// whether the count is still within limit. A limit of zero or less disables
// the check.
func (r *RateLimiter) Allow(ctx context.Context, action, subject string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	key := r.bucket(action, subject)

	// count and set expiry in a single redis round-trip
	multi := r.Client.Pipeline()
	incr := multi.Incr(ctx, key)
	multi.Expire(ctx, key, 2*r.window)
	if _, err := multi.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Remaining reports how many actions subject has left in the current window.
func (r *RateLimiter) Remaining(ctx context.Context, action, subject string, limit int) (int, error) {
	used, err := r.Client.Get(ctx, r.bucket(action, subject)).Int()
	if err == redis.Nil {
		used = 0
	} else if err != nil {
		return 0, err
	}
	if used >= limit {
		return 0, nil
	}
	return limit - used, nil
}

func (r *RateLimiter) Close() error {
	return r.Client.Close()
}

func (r *RateLimiter) bucket(action, subject string) string {
	slot := r.now().UTC().Truncate(r.window).Unix()
	return fmt.Sprintf("%s%s/%s/%d", rateLimitPrefix, action, subject, slot)
}
