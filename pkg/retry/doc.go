// Package retry provides bounded retry with pluggable backoff strategies.
//
// Operations are retried only when RetryIf classifies the error as
// transient; by default that follows the pkg/errors taxonomy, so not-found,
// auth, and body-validation failures are surfaced immediately while network
// and server errors back off exponentially up to MaxAttempts.
//
// Usage:
//
//	cfg := retry.DefaultConfig()
//	cfg.MaxAttempts = 3
//	err := retry.Do(func() error {
//	    return fetchDocument(id)
//	}, cfg)
package retry
