package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter bounds outbound analysis calls to max admissions per trailing
// window. It is a sliding window, not a token bucket: an admission only
// frees its slot once it ages past the window, which matches what the
// analyzer host actually enforces.
type RateLimiter struct {
	max    int
	window time.Duration

	mu         sync.Mutex
	admissions []time.Time // ordered, pruned lazily on each check
	waiters    int

	// Injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter admitting max calls per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Acquire blocks until fewer than max admissions sit inside the trailing
// window, then records one. The wait re-runs the whole check on wake:
// concurrent callers may have consumed slots while this one slept, so a
// single fixed wait would over-admit.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.admissions) < l.max {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.admissions[0])
		l.waiters++
		l.mu.Unlock()

		rateWaits.Add(1)
		slog.Debug("ratelimit: window full, waiting", slog.Duration("wait", wait))
		err := l.sleep(ctx, wait)
		l.mu.Lock()
		l.waiters--
		l.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// Pending returns how many callers are currently waiting for a slot.
func (l *RateLimiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters
}

// Admitted returns how many admissions currently sit inside the window.
func (l *RateLimiter) Admitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.admissions)
}

// prune drops admissions older than the window. Caller holds l.mu.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.admissions) && !l.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admissions = append(l.admissions[:0], l.admissions[i:]...)
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
