package interceptors

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/policy"
)

// TimeoutUnary bounds each call by the Timeout of its resolved policy. A
// tighter deadline set by the caller is kept. Handlers that return a bare
// context.DeadlineExceeded are reported as codes.DeadlineExceeded.
func TimeoutUnary(r *policy.Resolver) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		_, pol, ok := r.Resolve(info.FullMethod)
		if !ok || pol == nil || pol.Timeout <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, pol.Timeout)
		defer cancel()

		resp, err := handler(ctx, req)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			if _, isStatus := status.FromError(err); !isStatus {
				return nil, status.Error(codes.DeadlineExceeded, err.Error())
			}
		}
		return resp, err
	}
}
