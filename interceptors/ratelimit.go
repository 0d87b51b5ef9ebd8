package interceptors

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/metrics"
	"github.com/Keksclan/gamecatalog/policy"
	"github.com/Keksclan/gamecatalog/ratelimit"
)

var errRateLimited = status.Error(codes.ResourceExhausted, "rate limit exceeded")

// rateLimitState holds the global limiter, an optional policy resolver, and
// the per-group limiters created lazily from resolved policies. A nil global
// limiter admits every call that no group limits.
type rateLimitState struct {
	global   *ratelimit.Limiter
	resolver *policy.Resolver

	mu     sync.Mutex
	groups map[string]*ratelimit.Limiter
}

func newRateLimitState(l *ratelimit.Limiter, r *policy.Resolver) *rateLimitState {
	return &rateLimitState{global: l, resolver: r, groups: make(map[string]*ratelimit.Limiter)}
}

// allow reports whether fullMethod may proceed. A group with a RateLimit
// rule replaces the global limiter for its methods.
func (s *rateLimitState) allow(fullMethod string) bool {
	if s.resolver != nil {
		if name, pol, ok := s.resolver.Resolve(fullMethod); ok && pol != nil && pol.RateLimit != nil {
			return s.groupLimiter(name, pol.RateLimit).Allow()
		}
	}
	return s.global == nil || s.global.Allow()
}

func (s *rateLimitState) groupLimiter(name string, rl *policy.RateLimitRule) *ratelimit.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.groups[name]; ok {
		return l
	}
	l := ratelimit.NewLimiter(rl.PerSecond(), rl.Rate)
	s.groups[name] = l
	return l
}

// RateLimitUnary rejects calls with ResourceExhausted once the applicable
// limiter is drained.
func RateLimitUnary(l *ratelimit.Limiter, r *policy.Resolver) grpc.UnaryServerInterceptor {
	st := newRateLimitState(l, r)
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !st.allow(info.FullMethod) {
			metrics.RPCRejected.WithLabelValues(info.FullMethod).Inc()
			return nil, errRateLimited
		}
		return handler(ctx, req)
	}
}

// RateLimitStream is the streaming counterpart of [RateLimitUnary].
func RateLimitStream(l *ratelimit.Limiter, r *policy.Resolver) grpc.StreamServerInterceptor {
	st := newRateLimitState(l, r)
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !st.allow(info.FullMethod) {
			metrics.RPCRejected.WithLabelValues(info.FullMethod).Inc()
			return errRateLimited
		}
		return handler(srv, ss)
	}
}
