package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxSubWait bounds each sleep inside Acquire so cancellation is honored
// within this latency even when the full wait is minutes long.
const maxSubWait = 250 * time.Millisecond

// Clock abstracts time for deterministic tests
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// After returns a channel that fires after d has elapsed
	After(d time.Duration) <-chan time.Time
}

// systemClock implements Clock using the real time package
type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the real-time clock
func SystemClock() Clock { return systemClock{} }

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed right now and records it if so
	Allow() bool
	// Acquire blocks until the rate limit allows another request or the
	// context is cancelled
	Acquire(ctx context.Context) error
	// Reset clears the rate limiter state
	Reset()
}

// SlidingWindow implements a sliding window rate limiter: at most
// maxRequests recorded timestamps may fall inside the trailing window.
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	clock       Clock
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a sliding window rate limiter using the system clock
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return NewSlidingWindowWithClock(maxRequests, windowSize, systemClock{})
}

// NewSlidingWindowWithClock creates a sliding window rate limiter with an
// injected clock for deterministic tests
func NewSlidingWindowWithClock(maxRequests int, windowSize time.Duration, clock Clock) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		clock:       clock,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed and records it if so
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	sw.pruneExpired(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Acquire blocks until a request slot is available, then records the
// request. Waiting happens in bounded sub-waits, and the capacity check is
// re-evaluated after every wake rather than assumed satisfied.
func (sw *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sw.mu.Lock()
		now := sw.clock.Now()
		sw.pruneExpired(now)

		if len(sw.requests) < sw.maxRequests {
			sw.requests = append(sw.requests, now)
			sw.mu.Unlock()
			return nil
		}

		// At capacity: the next slot opens when the oldest request leaves
		// the window.
		wait := sw.requests[0].Add(sw.windowSize).Sub(now)
		sw.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		if wait > maxSubWait {
			wait = maxSubWait
		}

		select {
		case <-sw.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// InWindow returns the number of requests currently inside the window
func (sw *SlidingWindow) InWindow() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.pruneExpired(sw.clock.Now())
	return len(sw.requests)
}

// pruneExpired removes requests outside the sliding window. Caller holds mu.
func (sw *SlidingWindow) pruneExpired(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
