// Package ratelimit bounds outbound provider calls with fixed per-minute and
// per-hour windows. Rejection is immediate; callers surface it rather than
// queueing behind it.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned by Acquire when either window is exhausted.
var ErrLimited = errors.New("ratelimit: window exhausted")

// Limiter tracks two rolling counters reset on fixed 60s/3600s windows.
// This is an approximate sliding window (periodic reset), not a precise
// sliding log. It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	mu sync.Mutex

	perMinute int
	perHour   int

	minuteCount int
	hourCount   int
	minuteReset time.Time
	hourReset   time.Time

	now func() time.Time // injectable clock for tests
}

// NewLimiter creates a limiter with the given window thresholds. Zero or
// negative thresholds fall back to 30/minute and 1500/hour.
func NewLimiter(perMinute, perHour int) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if perHour <= 0 {
		perHour = 1500
	}
	now := time.Now()
	return &Limiter{
		perMinute:   perMinute,
		perHour:     perHour,
		minuteReset: now.Add(time.Minute),
		hourReset:   now.Add(time.Hour),
		now:         time.Now,
	}
}

// Allow consumes one slot from both windows if available and reports whether
// the call may proceed. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.minuteReset) {
		l.minuteCount = 0
		l.minuteReset = now.Add(time.Minute)
	}
	if !now.Before(l.hourReset) {
		l.hourCount = 0
		l.hourReset = now.Add(time.Hour)
	}

	if l.minuteCount >= l.perMinute || l.hourCount >= l.perHour {
		return false
	}
	l.minuteCount++
	l.hourCount++
	return true
}

// Acquire is Allow with an error: it returns ErrLimited when denied so
// callers can propagate a typed rejection.
func (l *Limiter) Acquire() error {
	if !l.Allow() {
		return ErrLimited
	}
	return nil
}

// Usage returns the counts consumed in the current minute and hour windows.
func (l *Limiter) Usage() (minute, hour int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minuteCount, l.hourCount
}

// SetClock replaces the limiter's time source. Test hook only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
