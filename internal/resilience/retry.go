package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how many times an operation runs and how long to wait
// between runs. The wait doubles after every failure, up to Cap.
type Policy struct {
	// Attempts counts the first call; 1 means no retries.
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	// Jitter spreads each wait by up to ±Jitter of its length.
	Jitter float64

	// Retryable replaces IsRetryable when set.
	Retryable func(error) bool
	// Notify is called before each wait.
	Notify func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy is used for broadband map API requests.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 3,
		Base:     time.Second,
		Cap:      30 * time.Second,
		Jitter:   0.25,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Base <= 0 {
		p.Base = 500 * time.Millisecond
	}
	if p.Cap < p.Base {
		p.Cap = p.Base
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// Delay returns the wait after the given failed attempt, counting from 0.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()

	wait := p.Base
	for i := 0; i < attempt && wait < p.Cap; i++ {
		wait *= 2
	}
	wait = min(wait, p.Cap)

	if p.Jitter > 0 {
		spread := float64(wait) * p.Jitter
		wait += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	return max(wait, 0)
}

// Retry runs op until it succeeds, fails with an error p does not retry,
// uses up p.Attempts, or ctx ends. The last error is returned as is.
func Retry[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt+1 >= p.Attempts || ctx.Err() != nil || !p.Retryable(err) {
			return zero, err
		}

		wait := p.Delay(attempt)
		if p.Notify != nil {
			p.Notify(attempt+1, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// LogRetries returns a Notify callback that warns about each retry of url.
func LogRetries(url string) func(int, time.Duration, error) {
	return func(attempt int, wait time.Duration, err error) {
		zap.L().Warn("retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
}
