// Package cache provides the response cache used in front of the catalog API:
// an in-process L1 backed by ristretto, an optional fail-soft Redis L2, a
// tiered combination of both, and the in-flight request deduplicator that
// keeps at most one identical upstream call outstanding.
package cache

import (
	"context"
	"net/url"
	"time"
)

// Cache is the contract the composed request path relies on. Deduplication
// and loading live with the caller (see [Deduplicator]).
type Cache interface {
	// Get retrieves a value by key. The boolean indicates a cache hit. An
	// entry whose TTL has elapsed is never returned.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL. A TTL <= 0 stores
	// nothing.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Key derives the cache key for an endpoint and its parameters. Empty values
// are dropped and keys are sorted, so two logically identical requests map to
// the same key no matter how their parameters were assembled.
func Key(endpoint string, params url.Values) string {
	clean := make(url.Values, len(params))
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	if len(clean) == 0 {
		return endpoint
	}
	return endpoint + "?" + clean.Encode()
}
