package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// UsageLog durably records accepted requests per key.
type UsageLog interface {
	// UsageSince returns the request times for key at or after since, oldest first.
	UsageSince(key string, since time.Time) ([]time.Time, error)
	RecordUsage(key string, at time.Time) error
	PruneUsage(before time.Time) error
}

// Persistent applies the same sliding minute window and daily count as Redis,
// over a UsageLog, so quotas survive process restarts.
type Persistent struct {
	log   UsageLog
	quota Quota
	now   func() time.Time
}

// NewPersistent creates a limiter backed by log.
func NewPersistent(log UsageLog, quota Quota) *Persistent {
	return &Persistent{log: log, quota: quota, now: time.Now}
}

// Allow consumes one request for key if both quotas permit it.
func (l *Persistent) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	windowStart := now.Add(-time.Minute)

	since := dayStart
	if windowStart.Before(since) {
		since = windowStart
	}
	if err := l.log.PruneUsage(since); err != nil {
		return Decision{}, fmt.Errorf("failed to prune usage: %w", err)
	}
	times, err := l.log.UsageSince(key, since)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	var daily int
	var window []time.Time
	for _, at := range times {
		if !at.Before(dayStart) {
			daily++
		}
		if at.After(windowStart) {
			window = append(window, at)
		}
	}

	if l.quota.PerDay > 0 && daily >= l.quota.PerDay {
		reset := nextMidnight(now)
		return Decision{Limit: l.quota.PerMinute, RetryAfter: reset.Sub(now), Reset: reset, Daily: true}, nil
	}
	if l.quota.PerMinute > 0 && len(window) >= l.quota.PerMinute {
		reset := window[0].Add(time.Minute)
		return Decision{Limit: l.quota.PerMinute, RetryAfter: reset.Sub(now), Reset: reset}, nil
	}

	if err := l.log.RecordUsage(key, now); err != nil {
		return Decision{}, fmt.Errorf("failed to record request: %w", err)
	}
	return Decision{
		Allowed:   true,
		Limit:     l.quota.PerMinute,
		Remaining: l.quota.PerMinute - len(window) - 1,
		Reset:     now.Add(time.Minute),
	}, nil
}
