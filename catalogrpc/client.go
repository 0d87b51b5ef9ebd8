package catalogrpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/rawg"
	"github.com/Keksclan/gamecatalog/retry"
)

// Client calls a remote gamecatalog.Catalog service. Calls failing with
// Unavailable are retried.
type Client struct {
	conn  grpc.ClientConnInterface
	retry retry.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientRetry replaces the retry schedule. Retryable defaults to
// Unavailable when left nil.
func WithClientRetry(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{
		conn: conn,
		retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    time.Second,
			Jitter:      0.2,
			Exponential: true,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.Retryable == nil {
		c.retry.Retryable = retry.OnCodes(codes.Unavailable)
	}
	return c
}

// Aggregate returns every category in display order.
func (c *Client) Aggregate(ctx context.Context, genres []string) ([]CategoryResult, error) {
	resp, err := invoke[AggregateResponse](ctx, c, MethodAggregate, &AggregateRequest{Genres: genres})
	if err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) Search(ctx context.Context, term string) ([]rawg.GameSummary, error) {
	resp, err := invoke[SearchResponse](ctx, c, MethodSearch, &SearchRequest{Term: term})
	if err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) GetDetails(ctx context.Context, id int) (*catalog.GameDetail, error) {
	resp, err := invoke[DetailsResponse](ctx, c, MethodGetDetails, &DetailsRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Game, nil
}

// Genres returns the genre slugs offered as filters.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	resp, err := invoke[GenresResponse](ctx, c, MethodGenres, &GenresRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	return retry.Do(ctx, c.retry, func(ctx context.Context) (*Resp, error) {
		resp := new(Resp)
		if err := c.conn.Invoke(ctx, method, req, resp, opts...); err != nil {
			return nil, err
		}
		return resp, nil
	})
}
