package upstream

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls how read calls to the platform are retried.
// Only transient failures are retried; everything else surfaces at once.
// The default makes a single attempt, so failures reach the caller untouched.
type RetryPolicy struct {
	MaxAttempts       int // total attempts, 1 disables retries
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy makes one attempt; the delays apply once MaxAttempts is raised.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:       1,
	InitialDelay:      500 * time.Millisecond,
	MaxDelay:          5 * time.Second,
	BackoffMultiplier: 2.0,
	Jitter:            true,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = DefaultRetryPolicy.BackoffMultiplier
	}
	return p
}

// delay is the wait before attempt n+1, n starting at 1
func (p RetryPolicy) delay(n int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(n-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter {
		d += time.Duration(float64(d) * 0.1 * (rand.Float64() - 0.5))
	}
	return d
}

// transientError marks transport level failures worth another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// isRetryable reports whether err is a throttling, gateway or transport failure.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var ue *Error
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// withRetry runs op until it succeeds, fails permanently or attempts run out.
// The last error is returned unchanged.
func (s *Salesforce) withRetry(ctx context.Context, name string, op func() error) error {
	policy := s.opts.Retry
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil || !isRetryable(err) || attempt >= policy.MaxAttempts {
			break
		}

		wait := policy.delay(attempt)
		s.logger.Warn("upstream call failed, retrying",
			zap.String("call", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}

	var te *transientError
	if errors.As(err, &te) {
		return te.err
	}
	return err
}
