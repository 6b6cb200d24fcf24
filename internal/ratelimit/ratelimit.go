// Package ratelimit enforces per-minute and per-day request quotas, in
// process, shared through Redis, or persisted in a UsageLog.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"aipedia/internal/config"
	"aipedia/internal/core"
)

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed    bool
	Limit      int // per-minute limit
	Remaining  int // requests left in the current minute
	RetryAfter time.Duration
	Reset      time.Time
	Daily      bool // refused because the daily quota is spent
}

// RetryAfterSeconds rounds the retry hint up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Err converts a refusal into a *core.RateLimitError. It returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &core.RateLimitError{RetryAfterSeconds: d.RetryAfterSeconds(), Daily: d.Daily}
}

// Limiter checks and consumes quota for a key (an IP address, or a local user).
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Quota is the pair of limits applied to every key.
type Quota struct {
	PerMinute int
	PerDay    int
}

// New builds the limiter selected by the configuration. A disabled limiter
// allows every request. The store backend needs a UsageLog; use NewPersistent.
func New(cfg config.RateLimit, prefix string) (Limiter, error) {
	quota := Quota{PerMinute: cfg.PerMinute, PerDay: cfg.PerDay}
	if !cfg.Enabled {
		return Unlimited{}, nil
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(quota), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis_url: %w", err)
		}
		return NewRedis(redis.NewClient(opts), quota, prefix), nil
	case "store":
		return nil, fmt.Errorf("the store backend needs a usage log")
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

// Unlimited allows everything.
type Unlimited struct{}

// Allow always allows.
func (Unlimited) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true, Limit: math.MaxInt32, Remaining: math.MaxInt32}, nil
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

func dayStamp(now time.Time) string {
	return now.Format("20060102")
}
