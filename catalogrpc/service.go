// Package catalogrpc exposes the catalog over gRPC as the gamecatalog.Catalog
// service. It uses [grpc.ServiceDesc] registration so that no protobuf code
// generation is required.
//
// Because the request/response types are plain Go structs (not generated
// protobuf messages), the package registers a thin codec wrapper that
// JSON-encodes catalog types while delegating all other messages to the
// standard proto codec. Importing this package activates the codec.
package catalogrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/rawg"
)

const serviceName = "gamecatalog.Catalog"

// Full method names.
const (
	MethodAggregate  = "/" + serviceName + "/Aggregate"
	MethodSearch     = "/" + serviceName + "/Search"
	MethodGetDetails = "/" + serviceName + "/GetDetails"
	MethodGenres     = "/" + serviceName + "/Genres"
)

// AggregateRequest asks for every configured category, optionally narrowed
// to genres. Refresh skips cached responses.
type AggregateRequest struct {
	Genres  []string `json:"genres,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`
}

// CategoryResult is one carousel of an aggregation.
type CategoryResult struct {
	Name  string             `json:"name"`
	Games []rawg.GameSummary `json:"games"`
}

// AggregateResponse lists categories in display order.
type AggregateResponse struct {
	Categories []CategoryResult `json:"categories"`
}

type SearchRequest struct {
	Term string `json:"term"`
}

type SearchResponse struct {
	Games []rawg.GameSummary `json:"games"`
}

type DetailsRequest struct {
	ID      int  `json:"id"`
	Refresh bool `json:"refresh,omitempty"`
}

type DetailsResponse struct {
	Game *catalog.GameDetail `json:"game"`
}

type GenresRequest struct{}

// GenresResponse lists the genre slugs a client should offer as filters.
type GenresResponse struct {
	Genres []string `json:"genres"`
}

// catalogMsg marks the types carried by the JSON codec.
type catalogMsg interface {
	isCatalogMsg()
}

func (*AggregateRequest) isCatalogMsg()  {}
func (*AggregateResponse) isCatalogMsg() {}
func (*SearchRequest) isCatalogMsg()     {}
func (*SearchResponse) isCatalogMsg()    {}
func (*DetailsRequest) isCatalogMsg()    {}
func (*DetailsResponse) isCatalogMsg()   {}
func (*GenresRequest) isCatalogMsg()     {}
func (*GenresResponse) isCatalogMsg()    {}

// Handler is the interface that a Catalog service implementation must satisfy.
type Handler interface {
	Aggregate(ctx context.Context, req *AggregateRequest) (*AggregateResponse, error)
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
	GetDetails(ctx context.Context, req *DetailsRequest) (*DetailsResponse, error)
	Genres(ctx context.Context, req *GenresRequest) (*GenresResponse, error)
}

// Catalog is the part of [catalog.Service] the default handler serves.
type Catalog interface {
	Categories() []string
	Genres() []string
	Aggregate(ctx context.Context, genres []string) (map[string][]rawg.GameSummary, error)
	Search(ctx context.Context, term string) ([]rawg.GameSummary, error)
	GetDetails(ctx context.Context, id int) (*catalog.GameDetail, error)
}

// NewHandler returns a Handler backed by c. Domain errors are translated to
// gRPC status codes.
func NewHandler(c Catalog) Handler { return handler{c: c} }

type handler struct {
	c Catalog
}

func (h handler) Aggregate(ctx context.Context, req *AggregateRequest) (*AggregateResponse, error) {
	if req.Refresh {
		ctx = contextx.WithCacheBypass(ctx)
	}
	byName, err := h.c.Aggregate(ctx, req.Genres)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &AggregateResponse{Categories: make([]CategoryResult, 0, len(byName))}
	for _, name := range h.c.Categories() {
		games, ok := byName[name]
		if !ok {
			continue
		}
		resp.Categories = append(resp.Categories, CategoryResult{Name: name, Games: games})
	}
	return resp, nil
}

func (h handler) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	games, err := h.c.Search(ctx, req.Term)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SearchResponse{Games: games}, nil
}

func (h handler) GetDetails(ctx context.Context, req *DetailsRequest) (*DetailsResponse, error) {
	if req.Refresh {
		ctx = contextx.WithCacheBypass(ctx)
	}
	d, err := h.c.GetDetails(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &DetailsResponse{Game: d}, nil
}

func (h handler) Genres(context.Context, *GenresRequest) (*GenresResponse, error) {
	return &GenresResponse{Genres: h.c.Genres()}, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, catalog.ErrInvalidRequest), errors.Is(err, rawg.ErrInvalidFilter):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, catalog.ErrDetailUnavailable):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// ServiceDesc is the grpc.ServiceDesc for the gamecatalog.Catalog service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		unary("Aggregate", MethodAggregate, Handler.Aggregate),
		unary("Search", MethodSearch, Handler.Search),
		unary("GetDetails", MethodGetDetails, Handler.GetDetails),
		unary("Genres", MethodGenres, Handler.Genres),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gamecatalog/catalog.proto",
}

// unary builds the method descriptor for one Handler method.
func unary[Req, Resp any](name, fullMethod string, call func(Handler, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(Handler), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, r any) (any, error) {
				return call(srv.(Handler), ctx, r.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// Register registers a Catalog service implementation on s.
func Register(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
