package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/metrics"
)

// logCall writes one access line per call. Client-side failures log at warn,
// server-side failures at error.
func logCall(ctx context.Context, log zerolog.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	metrics.RPCHandled.WithLabelValues(method, code.String()).Inc()

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = log.Info()
	case isClientCode(code):
		ev = log.Warn().Err(err)
	default:
		ev = log.Error().Err(err)
	}
	ev.Str("method", method).
		Str("code", code.String()).
		Str("request_id", contextx.RequestIDFromContext(ctx)).
		Dur("duration", time.Since(start)).
		Msg("rpc")
}

// LoggingUnary logs every unary call with its method, status code and
// duration. It should run after the request id interceptor.
func LoggingUnary(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, log, info.FullMethod, start, err)
		return resp, err
	}
}

// LoggingStream is the streaming counterpart of [LoggingUnary].
func LoggingStream(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), log, info.FullMethod, start, err)
		return err
	}
}

func isClientCode(c codes.Code) bool {
	switch c {
	case codes.Canceled, codes.InvalidArgument, codes.NotFound,
		codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}
