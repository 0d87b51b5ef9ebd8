package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/contextx"
)

var errInternal = status.Error(codes.Internal, "internal server error")

func logPanic(ctx context.Context, log zerolog.Logger, method string, r any) {
	log.Error().
		Str("method", method).
		Str("request_id", contextx.RequestIDFromContext(ctx)).
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("recovered from handler panic")
}

// RecoveryUnary returns a unary server interceptor that recovers from panics,
// logs them to log and returns codes.Internal instead of crashing the process.
func RecoveryUnary(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(ctx, log, info.FullMethod, r)
				resp = nil
				err = errInternal
			}
		}()
		return handler(ctx, req)
	}
}

// RecoveryStream is the streaming counterpart of [RecoveryUnary].
func RecoveryStream(log zerolog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := context.Background()
				if ss != nil {
					ctx = ss.Context()
				}
				logPanic(ctx, log, info.FullMethod, r)
				err = errInternal
			}
		}()
		return handler(srv, ss)
	}
}
