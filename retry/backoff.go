// Package retry provides a generic retry combinator with constant or
// exponential back-off and optional jitter. It wraps individual outbound calls
// (catalog API requests, client-side gRPC invocations) and is never installed
// inside server interceptors.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// backoff returns the delay for the given attempt (0-indexed). The returned
// duration is capped at cfg.MaxDelay when that is set.
func backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay)
	if cfg.Exponential {
		delay *= math.Pow(2, float64(attempt))
	}
	if limit := float64(cfg.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}
	if cfg.Jitter > 0 {
		// jitter adds up to ±Jitter fraction of the delay.
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
