// Package contextx carries per-request values across package boundaries:
// the request id used in logs and spans, and the cache bypass flag set by
// refresh requests.
package contextx

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	cacheBypassKey
)

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithCacheBypass marks ctx so that cached lookups skip the initial cache read
// and go to the upstream. The fresh result is still stored and still shared
// with concurrent identical requests.
func WithCacheBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheBypassKey, true)
}

// CacheBypass reports whether ctx was marked with [WithCacheBypass].
func CacheBypass(ctx context.Context) bool {
	v, _ := ctx.Value(cacheBypassKey).(bool)
	return v
}
