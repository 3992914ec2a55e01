package buyback

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces the buy-back API's request budget: a minimum delay
// between consecutive requests plus a hard cap per sliding 60-second
// window. When the window is full, Wait blocks until the oldest request
// ages out. One Limiter belongs to one Client; concurrent runs sharing a
// Client serialize through the mutex, which is held across the wait so the
// timestamp window and the request counter form a single critical section.
type Limiter struct {
	mu           sync.Mutex
	delay        *rate.Limiter
	window       time.Duration
	maxPerWindow int
	timestamps   []time.Time
	total        int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter with the given minimum inter-request delay
// and per-minute cap. Non-positive values fall back to 500ms and 60.
func NewLimiter(requestDelay time.Duration, maxPerMinute int) *Limiter {
	if requestDelay <= 0 {
		requestDelay = 500 * time.Millisecond
	}
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	return &Limiter{
		delay:        rate.NewLimiter(rate.Every(requestDelay), 1),
		window:       time.Minute,
		maxPerWindow: maxPerMinute,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Wait blocks until the next request is allowed and records it.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.timestamps) >= l.maxPerWindow {
		oldest := l.timestamps[0]
		if wait := l.window - now.Sub(oldest); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		l.prune(l.now())
	}

	if err := l.delay.Wait(ctx); err != nil {
		return err
	}

	l.timestamps = append(l.timestamps, l.now())
	l.total++
	return nil
}

// Total reports how many requests have been admitted so far.
func (l *Limiter) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// prune drops entries that aged out of the window. Timestamps are appended
// in order, so the slice stays sorted and the head is always the oldest.
func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.timestamps) && now.Sub(l.timestamps[cut]) >= l.window {
		cut++
	}
	l.timestamps = l.timestamps[cut:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
