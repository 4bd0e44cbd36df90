package signal

import (
	"sync"
	"time"
)

// BindRateLimiter caps how many sources one owner may bind per interval.
// A limit of zero disables it.
type BindRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewBindRateLimiter(limit int, interval time.Duration) *BindRateLimiter {
	return &BindRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *BindRateLimiter) Allow(owner string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[owner]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[owner] = fresh
		return false
	}

	rl.history[owner] = append(fresh, now)
	return true
}
