package rawg

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Keksclan/gamecatalog/breaker"
)

// ErrCircuitOpen marks requests rejected locally because the upstream has been
// failing.
var ErrCircuitOpen = breaker.ErrOpen

// TransportError describes a failed outbound request: a timeout, a network
// failure, or a non-2xx response. StatusCode is zero when no response was
// received.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rawg: GET %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rawg: GET %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsRetryable is the retry predicate for catalog requests. Every transport
// failure is retried except a locally open circuit and caller cancellation.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

// isClientError reports 4xx responses other than 429; they say nothing about
// upstream health.
func isClientError(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode >= 400 && te.StatusCode < 500 && te.StatusCode != http.StatusTooManyRequests
}
