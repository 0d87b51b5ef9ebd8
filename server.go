// Package gamecatalog hosts the gRPC server that publishes the game catalog.
// Middleware (recovery, request ids, tracing, logging, rate limiting and
// per-method timeouts) is layered via functional [Option] values in a fixed
// order, independent of the order options are passed.
package gamecatalog

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Keksclan/gamecatalog/catalogrpc"
)

// Server wraps a [grpc.Server] with the catalog middleware stack and the
// standard gRPC health service.
//
//	srv := gamecatalog.NewServer(gamecatalog.DefaultOptions(log)...)
//	srv.RegisterCatalog(catalogrpc.NewHandler(svc))
//	_ = srv.Serve(lis)
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer applies opts and wires the resulting interceptor chains into
// [grpc.NewServer].
//
//	srv := gamecatalog.NewServer(
//		gamecatalog.WithRecovery(),
//		gamecatalog.WithRateLimitGlobal(50, 100),
//		gamecatalog.WithSearchRateLimit(600),
//	)
func NewServer(opts ...Option) *Server {
	cfg := newConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.install()

	serverOpts := append(cfg.middlewares.ServerOptions(), cfg.serverOpts...)

	s := &Server{
		grpcServer: grpc.NewServer(serverOpts...),
		health:     health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// GRPC returns the underlying *grpc.Server so callers can register services.
func (s *Server) GRPC() *grpc.Server {
	return s.grpcServer
}

// RegisterCatalog registers the gamecatalog.Catalog service and marks it
// serving in the health service.
func (s *Server) RegisterCatalog(h catalogrpc.Handler) {
	catalogrpc.Register(s.grpcServer, h)
	s.health.SetServingStatus(catalogrpc.ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Serve accepts connections on lis until Stop or GracefulStop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop flips every service to NOT_SERVING and waits for pending
// calls to finish.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// MetricsHandler returns an http.Handler that serves Prometheus metrics.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
