package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis shares quotas between proxy instances. The minute window is a sorted
// set of request timestamps; the daily quota is a counter that expires at
// midnight.
type Redis struct {
	client *redis.Client
	quota  Quota
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, quota Quota, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, quota: quota, prefix: prefix, now: time.Now}
}

func (l *Redis) minuteKey(key string) string {
	return fmt.Sprintf("%s:minute:%s", l.prefix, key)
}

func (l *Redis) dailyKey(key string, now time.Time) string {
	return fmt.Sprintf("%s:daily:%s:%s", l.prefix, key, dayStamp(now))
}

// Allow consumes one request for key if both quotas permit it.
func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	minuteKey := l.minuteKey(key)
	dailyKey := l.dailyKey(key, now)
	windowStart := now.Add(-time.Minute).UnixMilli()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, minuteKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, minuteKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, minuteKey, 0, 0)
	dailyCmd := pipe.Get(ctx, dailyKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	daily, err := dailyCmd.Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("failed to read daily count: %w", err)
	}
	if l.quota.PerDay > 0 && daily >= l.quota.PerDay {
		reset := nextMidnight(now)
		return Decision{Limit: l.quota.PerMinute, RetryAfter: reset.Sub(now), Reset: reset, Daily: true}, nil
	}

	count := int(countCmd.Val())
	if l.quota.PerMinute > 0 && count >= l.quota.PerMinute {
		reset := now.Add(time.Minute)
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			reset = time.UnixMilli(int64(oldest[0].Score)).Add(time.Minute)
		}
		return Decision{Limit: l.quota.PerMinute, RetryAfter: reset.Sub(now), Reset: reset}, nil
	}

	pipe = l.client.Pipeline()
	pipe.ZAdd(ctx, minuteKey, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	pipe.Expire(ctx, minuteKey, 2*time.Minute)
	pipe.Incr(ctx, dailyKey)
	pipe.ExpireAt(ctx, dailyKey, nextMidnight(now))
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("failed to record request: %w", err)
	}

	return Decision{
		Allowed:   true,
		Limit:     l.quota.PerMinute,
		Remaining: l.quota.PerMinute - count - 1,
		Reset:     now.Add(time.Minute),
	}, nil
}

// Reset clears the minute window for key.
func (l *Redis) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.minuteKey(key), l.dailyKey(key, l.now())).Err()
}

// Close releases the Redis connection pool.
func (l *Redis) Close() error {
	return l.client.Close()
}
