package gamecatalog

import (
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/Keksclan/gamecatalog/catalogrpc"
	"github.com/Keksclan/gamecatalog/policy"
	"github.com/Keksclan/gamecatalog/ratelimit"
	"github.com/Keksclan/gamecatalog/tracing"
)

// Option configures a Server.
type Option func(*config)

// WithLogger sets the logger used by the recovery and logging middleware.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithRecovery turns handler panics into codes.Internal instead of crashing
// the process.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID gives every call a request id, reusing the caller's
// x-request-id header when present.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithLogging writes one log line per call.
func WithLogging() Option {
	return func(c *config) { c.logging = true }
}

// WithOpenTelemetry opens a server span per call. A nil cfg uses the global
// tracer provider and propagator.
func WithOpenTelemetry(cfg *tracing.TracingConfig) Option {
	return func(c *config) {
		if cfg == nil {
			cfg = &tracing.TracingConfig{}
		}
		c.tracing = cfg
	}
}

// WithRateLimitGlobal admits rps calls per second with the given burst
// across every method that no policy group limits.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) {
		if rps > 0 {
			c.global = ratelimit.NewLimiter(rps, burst)
		}
	}
}

// WithPolicies adds method groups whose RateLimit replaces the global limit
// and whose Timeout bounds the handler.
func WithPolicies(groups ...*policy.GroupBuilder) Option {
	return func(c *config) { c.groups = append(c.groups, groups...) }
}

// WithSearchRateLimit caps Search at perMinute calls, separate from the
// global limit. Search backs type-ahead input and is the chattiest method.
func WithSearchRateLimit(perMinute int) Option {
	return func(c *config) {
		if perMinute <= 0 {
			return
		}
		c.groups = append(c.groups, policy.Group("search").
			Exact(catalogrpc.MethodSearch).
			Policy(policy.Policy{
				RateLimit: &policy.RateLimitRule{Rate: perMinute, Window: time.Minute},
			}))
	}
}

// WithRPCTimeout bounds every catalog method by d unless a more specific
// group sets its own Timeout.
func WithRPCTimeout(d time.Duration) Option {
	return func(c *config) {
		if d <= 0 {
			return
		}
		c.groups = append(c.groups, policy.Group("catalog").
			Prefix("/"+catalogrpc.ServiceDesc.ServiceName+"/").
			Policy(policy.Policy{Timeout: d}))
	}
}

// WithUnaryInterceptor appends a unary interceptor after the built-in ones.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) { c.middlewares.Add(orderCustom, i, nil) }
}

// WithStreamInterceptor appends a stream interceptor after the built-in ones.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) { c.middlewares.Add(orderCustom, nil, i) }
}

// WithServerOption passes o straight to grpc.NewServer.
func WithServerOption(o grpc.ServerOption) Option {
	return func(c *config) { c.serverOpts = append(c.serverOpts, o) }
}
