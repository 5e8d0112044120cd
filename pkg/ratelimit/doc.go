// Package ratelimit bounds outgoing API calls to a maximum per rolling
// time window.
//
// Companies House enforces 600 requests per 5 minutes across both the Data
// API and the Document API, so one SlidingWindow instance is shared by every
// caller. The window bookkeeping sits behind a single mutex, making the
// limiter safe for concurrent callers even though the reference download
// pipeline is single-threaded.
//
// Usage:
//
//	limiter := ratelimit.NewSlidingWindow(600, 5*time.Minute)
//
//	// Block until a request slot is free, honoring cancellation
//	if err := limiter.Acquire(ctx); err != nil {
//	    return err
//	}
//	// Proceed with request
//
// Acquire waits in bounded sub-waits, so cancellation is observed within
// fractions of a second rather than only when the full window elapses.
package ratelimit
