package reconciliation

import (
	"math"
	"time"
)

// Backoff computes exponential retry delays
type Backoff struct {
	Initial     time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff returns the retry policy for external synchronization
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     2 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 5,
	}
}

// DelayFor returns the delay before the given attempt. Attempts are
// 1-based: DelayFor(1) is the delay after the first failure. The delay
// grows by Multiplier per attempt and is capped at MaxDelay.
func (b Backoff) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1)))
	if delay > b.MaxDelay || delay < 0 {
		return b.MaxDelay
	}
	return delay
}

// Exhausted reports whether the attempt budget is spent
func (b Backoff) Exhausted(attempt int) bool {
	return attempt >= b.MaxAttempts
}
