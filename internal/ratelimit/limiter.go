package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	shortWindow = time.Minute
	longWindow  = time.Hour
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// LimitError carries a retry-after hint alongside the sentinel.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// Stats is a point-in-time view of the limiter, surfaced on the health
// endpoint.
type Stats struct {
	ActiveCallers int
	TotalRecorded int
}

type callerHistory struct {
	mu       sync.Mutex
	instants []time.Time
}

// Limiter admits requests per caller against two sliding windows (one
// minute and one hour). Histories are pruned on every check, so no
// separate expiry pass is needed for correctness; a janitor sweep only
// reclaims memory held by idle caller keys.
type Limiter struct {
	perMinute int
	perHour   int
	now       func() time.Time

	mu      sync.RWMutex
	callers map[string]*callerHistory
}

func NewLimiter(perMinute, perHour int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
		callers:   make(map[string]*callerHistory),
	}
}

// CheckAndRecord admits or rejects one request for callerID. A rejected
// request does not count toward the caller's history.
func (l *Limiter) CheckAndRecord(callerID string) error {
	h := l.history(callerID)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := l.now()
	h.instants = pruneBefore(h.instants, now.Add(-longWindow))

	hourCount := len(h.instants)
	minuteCount := 0
	cutoff := now.Add(-shortWindow)
	for i := len(h.instants) - 1; i >= 0; i-- {
		if h.instants[i].Before(cutoff) {
			break
		}
		minuteCount++
	}

	if minuteCount >= l.perMinute {
		oldest := h.instants[len(h.instants)-minuteCount]
		return &LimitError{RetryAfter: oldest.Add(shortWindow).Sub(now)}
	}
	if hourCount >= l.perHour {
		return &LimitError{RetryAfter: h.instants[0].Add(longWindow).Sub(now)}
	}

	h.instants = append(h.instants, now)
	return nil
}

// Stats counts distinct caller keys and their summed history lengths,
// pruned to the long window.
func (l *Limiter) Stats() Stats {
	l.mu.RLock()
	histories := make([]*callerHistory, 0, len(l.callers))
	for _, h := range l.callers {
		histories = append(histories, h)
	}
	l.mu.RUnlock()

	cutoff := l.now().Add(-longWindow)
	s := Stats{ActiveCallers: len(histories)}
	for _, h := range histories {
		h.mu.Lock()
		h.instants = pruneBefore(h.instants, cutoff)
		s.TotalRecorded += len(h.instants)
		h.mu.Unlock()
	}
	return s
}

// Sweep drops caller keys whose entire history has aged out of the long
// window, bounding memory under churning caller identities. It returns
// the number of keys removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-longWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, h := range l.callers {
		h.mu.Lock()
		h.instants = pruneBefore(h.instants, cutoff)
		empty := len(h.instants) == 0
		h.mu.Unlock()
		if empty {
			delete(l.callers, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps periodically until done is closed.
func (l *Limiter) RunJanitor(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) history(callerID string) *callerHistory {
	l.mu.RLock()
	h, ok := l.callers[callerID]
	l.mu.RUnlock()
	if ok {
		return h
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.callers[callerID]; ok {
		return h
	}
	h = &callerHistory{}
	l.callers[callerID] = h
	return h
}

func pruneBefore(instants []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(instants) && instants[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return instants
	}
	return append(instants[:0], instants[i:]...)
}
