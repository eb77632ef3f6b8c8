package trackerapi

import (
	"context"
	"sync"
	"time"
)

// rateLimiter enforces a minimum cooldown interval between API requests. A
// zero or negative cooldown disables pacing.
type rateLimiter struct {
	cooldown time.Duration

	mu   sync.Mutex
	next time.Time
}

func newRateLimiter(cooldown time.Duration) *rateLimiter {
	return &rateLimiter{cooldown: cooldown}
}

// wait blocks until the cooldown since the previous claim has passed.
// Callers are served in claim order; a canceled context abandons the wait
// but the claimed slot stays consumed.
func (l *rateLimiter) wait(ctx context.Context) error {
	if l.cooldown <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	at := l.next
	if at.Before(now) {
		at = now
	}
	l.next = at.Add(l.cooldown)
	l.mu.Unlock()

	delay := at.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
