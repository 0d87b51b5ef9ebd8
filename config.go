package gamecatalog

import (
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/Keksclan/gamecatalog/interceptors"
	"github.com/Keksclan/gamecatalog/internal/core"
	"github.com/Keksclan/gamecatalog/policy"
	"github.com/Keksclan/gamecatalog/ratelimit"
	"github.com/Keksclan/gamecatalog/tracing"
)

// Middleware priorities. Lower values run first.
const (
	orderRecovery  = 100
	orderRequestID = 200
	orderTracing   = 300
	orderLogging   = 400
	orderRateLimit = 500
	orderTimeout   = 600
	orderCustom    = 1000
)

// config holds the internal configuration assembled via functional options.
type config struct {
	middlewares core.MiddlewareBuilder
	serverOpts  []grpc.ServerOption

	log       zerolog.Logger
	recovery  bool
	requestID bool
	logging   bool
	tracing   *tracing.TracingConfig
	global    *ratelimit.Limiter
	groups    []*policy.GroupBuilder
}

func newConfig() config {
	return config{log: zerolog.Nop()}
}

// install registers the built-in middleware selected by the options. It runs
// after every option has been applied so that the logger is final.
func (c *config) install() {
	if c.recovery {
		c.middlewares.Add(orderRecovery, interceptors.RecoveryUnary(c.log), interceptors.RecoveryStream(c.log))
	}
	if c.requestID {
		c.middlewares.Add(orderRequestID, interceptors.RequestIDUnary(), interceptors.RequestIDStream())
	}
	if c.tracing != nil {
		c.middlewares.Add(orderTracing, tracing.UnaryServerInterceptor(c.tracing), tracing.StreamServerInterceptor(c.tracing))
	}
	if c.logging {
		c.middlewares.Add(orderLogging, interceptors.LoggingUnary(c.log), interceptors.LoggingStream(c.log))
	}

	var resolver *policy.Resolver
	if len(c.groups) > 0 {
		resolver = policy.NewResolver(c.groups...)
	}
	if c.global != nil || resolver != nil {
		c.middlewares.Add(orderRateLimit,
			interceptors.RateLimitUnary(c.global, resolver),
			interceptors.RateLimitStream(c.global, resolver))
	}
	if resolver != nil {
		c.middlewares.Add(orderTimeout, interceptors.TimeoutUnary(resolver), nil)
	}
}
