package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	day      string
	count    int
	lastSeen time.Time
}

// Memory keeps a token bucket and a daily counter per key.
type Memory struct {
	quota   Quota
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemory creates an in-process limiter.
func NewMemory(quota Quota) *Memory {
	return &Memory{
		quota:   quota,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) entry(key string, now time.Time) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		limit := rate.Inf
		burst := 0
		if m.quota.PerMinute > 0 {
			limit = rate.Every(time.Minute / time.Duration(m.quota.PerMinute))
			burst = m.quota.PerMinute
		}
		e = &memoryEntry{limiter: rate.NewLimiter(limit, burst), day: dayStamp(now)}
		m.entries[key] = e
	}
	if day := dayStamp(now); e.day != day {
		e.day = day
		e.count = 0
	}
	e.lastSeen = now
	return e
}

// Allow consumes one request for key if both quotas permit it.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := m.entry(key, now)

	if m.quota.PerDay > 0 && e.count >= m.quota.PerDay {
		reset := nextMidnight(now)
		return Decision{
			Limit:      m.quota.PerMinute,
			RetryAfter: reset.Sub(now),
			Reset:      reset,
			Daily:      true,
		}, nil
	}

	if m.quota.PerMinute > 0 {
		r := e.limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
			r.CancelAt(now)
			return Decision{
				Limit:      m.quota.PerMinute,
				RetryAfter: delay,
				Reset:      now.Add(delay),
			}, nil
		}
	}

	e.count++
	remaining := m.quota.PerMinute
	if m.quota.PerMinute > 0 {
		remaining = int(e.limiter.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
	}
	return Decision{
		Allowed:   true,
		Limit:     m.quota.PerMinute,
		Remaining: remaining,
		Reset:     now.Add(time.Minute),
	}, nil
}

// Prune drops keys idle for longer than maxIdle.
func (m *Memory) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for key, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanup prunes idle keys every interval until ctx is done.
func (m *Memory) StartCleanup(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune(maxIdle)
			}
		}
	}()
}
