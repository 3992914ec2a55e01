package buyback

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives a Limiter without real sleeps. Sleeping advances the
// clock instead of waiting.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newFakeLimiter(maxPerMinute int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	// 1ns delay so the token bucket never blocks the test.
	l := NewLimiter(time.Nanosecond, maxPerMinute)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestLimiterUnderCap(t *testing.T) {
	l, clock := newFakeLimiter(5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		clock.now = clock.now.Add(time.Second)
	}

	if len(clock.slept) != 0 {
		t.Errorf("slept %v, want no window sleeps under the cap", clock.slept)
	}
	if l.Total() != 5 {
		t.Errorf("Total() = %d, want 5", l.Total())
	}
}

func TestLimiterBlocksAtCap(t *testing.T) {
	l, clock := newFakeLimiter(3)
	ctx := context.Background()

	// Three requests at t=0s, t=10s, t=20s fill the window.
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		clock.now = clock.now.Add(10 * time.Second)
	}

	// Now at t=30s the fourth request must wait until the oldest (t=0s)
	// ages out of the 60s window: 60 - 30 = 30s.
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if len(clock.slept) != 1 {
		t.Fatalf("slept %d times, want 1", len(clock.slept))
	}
	if clock.slept[0] != 30*time.Second {
		t.Errorf("slept %v, want 30s", clock.slept[0])
	}
	if l.Total() != 4 {
		t.Errorf("Total() = %d, want 4", l.Total())
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l, clock := newFakeLimiter(2)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	// Jump past the window; both entries age out and no sleep is needed.
	clock.now = clock.now.Add(61 * time.Second)
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	if len(clock.slept) != 0 {
		t.Errorf("slept %v, want none after the window slid", clock.slept)
	}
}

func TestLimiterContextCancelled(t *testing.T) {
	l := NewLimiter(time.Hour, 60)
	ctx, cancel := context.WithCancel(context.Background())

	// First request consumes the initial token.
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() expected error after cancel")
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.maxPerWindow != 60 {
		t.Errorf("maxPerWindow = %d, want 60", l.maxPerWindow)
	}
	if l.window != time.Minute {
		t.Errorf("window = %v, want 1m", l.window)
	}
}
