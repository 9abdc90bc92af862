package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(perMinute, perHour int) (*Limiter, *fakeClock) {
	l := NewLimiter(perMinute, perHour)
	clock := newFakeClock()
	l.now = clock.Now
	return l, clock
}

func TestCheckAndRecord_MinuteCeiling(t *testing.T) {
	l, clock := newTestLimiter(3, 100)

	for i := 0; i < 3; i++ {
		if err := l.CheckAndRecord("caller"); err != nil {
			t.Fatalf("request %d: expected admit, got %v", i, err)
		}
		clock.Advance(time.Second)
	}
	err := l.CheckAndRecord("caller")
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if le.RetryAfter <= 0 || le.RetryAfter > time.Minute {
		t.Fatalf("retry-after hint out of range: %v", le.RetryAfter)
	}
}

func TestCheckAndRecord_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, 100)

	if err := l.CheckAndRecord("caller"); err != nil {
		t.Fatal(err)
	}
	if err := l.CheckAndRecord("caller"); err != nil {
		t.Fatal(err)
	}
	if err := l.CheckAndRecord("caller"); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected rejection at ceiling, got %v", err)
	}

	clock.Advance(61 * time.Second)
	if err := l.CheckAndRecord("caller"); err != nil {
		t.Fatalf("expected admit after window slid, got %v", err)
	}
}

func TestCheckAndRecord_RejectionNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(1, 100)

	if err := l.CheckAndRecord("caller"); err != nil {
		t.Fatal(err)
	}
	// Hammer rejections; none of them may extend the window.
	for i := 0; i < 10; i++ {
		if err := l.CheckAndRecord("caller"); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected rejection, got %v", err)
		}
	}
	clock.Advance(61 * time.Second)
	if err := l.CheckAndRecord("caller"); err != nil {
		t.Fatalf("rejected requests must not count toward the limit: %v", err)
	}
}

func TestCheckAndRecord_HourCeiling(t *testing.T) {
	l, clock := newTestLimiter(10, 20)

	admitted := 0
	for i := 0; i < 30; i++ {
		if err := l.CheckAndRecord("caller"); err == nil {
			admitted++
		}
		clock.Advance(10 * time.Second)
	}
	if admitted != 20 {
		t.Fatalf("expected 20 admissions under hourly ceiling, got %d", admitted)
	}
}

func TestCheckAndRecord_CallersIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 100)

	if err := l.CheckAndRecord("a"); err != nil {
		t.Fatal(err)
	}
	if err := l.CheckAndRecord("b"); err != nil {
		t.Fatalf("caller b must not be throttled by caller a: %v", err)
	}
}

func TestCheckAndRecord_ConcurrentAdmissionIsExact(t *testing.T) {
	const slots = 5
	const attempts = 50

	l, _ := newTestLimiter(slots, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.CheckAndRecord("caller"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != slots {
		t.Fatalf("expected exactly %d admissions, got %d", slots, admitted)
	}
}

func TestStats(t *testing.T) {
	l, _ := newTestLimiter(10, 100)

	_ = l.CheckAndRecord("a")
	_ = l.CheckAndRecord("a")
	_ = l.CheckAndRecord("b")

	s := l.Stats()
	if s.ActiveCallers != 2 {
		t.Fatalf("expected 2 active callers, got %d", s.ActiveCallers)
	}
	if s.TotalRecorded != 3 {
		t.Fatalf("expected 3 recorded instants, got %d", s.TotalRecorded)
	}
}

func TestSweep_DropsIdleCallers(t *testing.T) {
	l, clock := newTestLimiter(10, 100)

	_ = l.CheckAndRecord("old")
	clock.Advance(2 * time.Hour)
	_ = l.CheckAndRecord("fresh")

	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("expected 1 key swept, got %d", removed)
	}
	s := l.Stats()
	if s.ActiveCallers != 1 {
		t.Fatalf("expected 1 remaining caller, got %d", s.ActiveCallers)
	}
}
