package retry

import (
	"context"
	"slices"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/metrics"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including the
	// first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before each retry. With Exponential set it is
	// the delay before the first retry and doubles afterwards.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay. Zero means no cap.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64

	// Exponential switches from a constant BaseDelay to BaseDelay * 2^attempt.
	Exponential bool

	// Retryable decides whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

// Default is the schedule used in front of the catalog API: four attempts in
// total, one second apart.
func Default() Config {
	return Config{MaxAttempts: 4, BaseDelay: time.Second}
}

// OnCodes returns a Retryable predicate accepting errors that carry one of the
// given gRPC status codes.
func OnCodes(retryable ...codes.Code) func(error) bool {
	return func(err error) bool {
		st, ok := status.FromError(err)
		return ok && slices.Contains(retryable, st.Code())
	}
}

// Do calls fn up to cfg.MaxAttempts times, retrying while cfg.Retryable
// accepts the returned error. Between attempts the configured back-off delay
// (with optional jitter) is applied. When the attempts are used up the last
// error is returned unchanged.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// Last attempt: return immediately.
		if i == attempts-1 {
			return zero, err
		}

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, err
		}

		// Wait with back-off, but respect context cancellation.
		timer := time.NewTimer(backoff(cfg, i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		metrics.RetryAttempts.Inc()
	}

	// Unreachable, but keeps the compiler happy.
	return zero, nil
}
