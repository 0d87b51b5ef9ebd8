// Package core orders server middleware. Options register interceptors with a
// priority and the builder turns them into grpc.ServerOption values once
// every option has been applied.
package core

import (
	"cmp"
	"slices"

	"google.golang.org/grpc"
)

type entry struct {
	order  int
	unary  grpc.UnaryServerInterceptor
	stream grpc.StreamServerInterceptor
}

// MiddlewareBuilder collects interceptors by priority. The zero value is
// ready to use.
type MiddlewareBuilder struct {
	entries []entry
}

// Add registers an interceptor pair. Lower orders run first (outermost) and
// equal orders keep registration order. Either interceptor may be nil.
func (b *MiddlewareBuilder) Add(order int, unary grpc.UnaryServerInterceptor, stream grpc.StreamServerInterceptor) {
	b.entries = append(b.entries, entry{order: order, unary: unary, stream: stream})
}

// Build returns the unary and stream interceptors in execution order.
func (b *MiddlewareBuilder) Build() ([]grpc.UnaryServerInterceptor, []grpc.StreamServerInterceptor) {
	sorted := slices.Clone(b.entries)
	slices.SortStableFunc(sorted, func(x, y entry) int { return cmp.Compare(x.order, y.order) })

	var unary []grpc.UnaryServerInterceptor
	var stream []grpc.StreamServerInterceptor
	for _, e := range sorted {
		if e.unary != nil {
			unary = append(unary, e.unary)
		}
		if e.stream != nil {
			stream = append(stream, e.stream)
		}
	}
	return unary, stream
}

// ServerOptions chains the built interceptors into options for
// grpc.NewServer. It returns nil when nothing was registered.
func (b *MiddlewareBuilder) ServerOptions() []grpc.ServerOption {
	unary, stream := b.Build()
	var opts []grpc.ServerOption
	if len(unary) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(unary...))
	}
	if len(stream) > 0 {
		opts = append(opts, grpc.ChainStreamInterceptor(stream...))
	}
	return opts
}
