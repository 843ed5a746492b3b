package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter enforces the global bound on simultaneously rendering jobs and
// an optional token-bucket dispatch rate limit. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	max     int
	active  int
	limiter *rate.Limiter
}

// NewLimiter creates a Limiter with the given concurrency bound.
// dispatchRate is the maximum sustained dispatches per second; zero
// disables rate limiting. burst defaults to 1 when a rate is set.
func NewLimiter(maxConcurrent int, dispatchRate float64, burst int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	l := &Limiter{max: maxConcurrent}
	if dispatchRate > 0 {
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(dispatchRate), burst)
	}
	return l
}

// TryAcquire checks the rate limit and concurrency bound. If dispatch is
// allowed it increments the active counter and returns true. The caller
// MUST call Release when the job reaches a terminal status.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= l.max {
		return false
	}
	if l.limiter != nil && !l.limiter.Allow() {
		return false
	}

	l.active++
	return true
}

// Release decrements the active job counter.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active > 0 {
		l.active--
	}
}

// Active returns the current number of rendering jobs.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Max returns the concurrency bound.
func (l *Limiter) Max() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max
}
