package notifox

import (
	"errors"
	"time"
)

// RetryPolicy decides whether and when a failed request is sent again.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff returns the wait before retry number attempt (0-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err warrants another attempt.
	Retryable func(err error) bool
}

// DefaultRetryPolicy retries 429 and 5xx responses up to three times,
// waiting 0.5s, 1s, 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    ExponentialBackoff(500 * time.Millisecond),
		Retryable:  RetryableError,
	}
}

// ExponentialBackoff doubles base on every attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << attempt
	}
}

// NoBackoff retries immediately.
func NoBackoff(int) time.Duration { return 0 }

// RetryableError is the default retry predicate.
func RetryableError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return RetryableError(err)
	}
	return p.Retryable(err)
}
