// ABOUTME: Retry policy and exponential backoff for transient node execution errors.
// ABOUTME: Provides none/standard/patient presets selectable by name from the CLI.
package loom

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how many times a node execution is retried on error.
type RetryPolicy struct {
	MaxAttempts int // minimum 1 (1 = no retries)
	Backoff     BackoffConfig
	ShouldRetry func(error) bool
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DelayForAttempt calculates the delay for a given attempt number
// (0-indexed): InitialDelay * Factor^attempt, capped at MaxDelay. With
// Jitter the delay is randomized in [0, calculated].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns a policy with a single attempt.
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyStandard returns 3 attempts with jittered exponential backoff.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyPatient returns 3 attempts with a high initial delay and steep
// backoff, for slow upstream services.
func RetryPolicyPatient() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 2 * time.Second,
			Factor:       3.0,
			MaxDelay:     60 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyByName maps a policy name to its preset, defaulting to none.
func RetryPolicyByName(name string) RetryPolicy {
	switch name {
	case "standard":
		return RetryPolicyStandard()
	case "patient":
		return RetryPolicyPatient()
	default:
		return RetryPolicyNone()
	}
}

// DefaultShouldRetry retries any non-nil error.
func DefaultShouldRetry(err error) bool {
	return err != nil
}

// sleepWithContext sleeps for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
