package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy configures a bounded exponential backoff.
type Policy struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// Base is the delay before the first retry; it doubles on every further retry.
	Base time.Duration
}

// Delay returns the wait before retry number attempt (0-based): base*2^attempt plus up to 50% jitter.
func (p Policy) Delay(attempt int) time.Duration {
	exp := p.Base * time.Duration(1<<attempt)
	if exp <= 0 {
		return 0
	}
	half := int64(exp / 2)
	if half <= 0 {
		return exp
	}
	return exp + time.Duration(rand.Int64N(half))
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts run out,
// or ctx is done. It returns the last error seen.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
