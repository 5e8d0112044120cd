package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "chscraper/pkg/errors"
	"chscraper/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeServerError, "server error", 503)
		}
		return nil
	}, testConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "connection reset", 0)
	}, testConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retry attempts")

	var apiErr *errs.Error
	assert.True(t, errors.As(err, &apiErr), "wrapped error should still be typed")
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := []errs.ErrorType{
		errs.ErrorTypeNotFound,
		errs.ErrorTypeAuth,
		errs.ErrorTypeContentType,
		errs.ErrorTypeSize,
		errs.ErrorTypeIntegrity,
	}

	for _, errType := range permanent {
		t.Run(string(errType), func(t *testing.T) {
			calls := 0
			err := Do(func() error {
				calls++
				return errs.New(errType, "permanent failure", 404)
			}, testConfig(5))

			require.Error(t, err)
			assert.Equal(t, 1, calls, "permanent errors must not be retried")
		})
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig(0) // unlimited attempts
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: 50 * time.Millisecond}

	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "down", 0)
	}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (string, error) {
		calls++
		if calls < 2 {
			return "", errs.New(errs.ErrorTypeServerError, "flaky", 500)
		}
		return "payload", nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errors.New("untyped errors are treated as transient")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "throttled", 429)))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypePagination, "did not converge", 0)))
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0,
	}

	assert.Equal(t, time.Duration(0), eb.NextDelay(0))
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, 10*time.Second, eb.NextDelay(10), "delay capped at MaxDelay")
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		delay := eb.NextDelay(2)
		assert.GreaterOrEqual(t, delay, time.Second)
		assert.LessOrEqual(t, delay, 3*time.Second)
	}
}
