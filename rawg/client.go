// Package rawg is a thin client for the RAWG game-metadata API. The [Client]
// performs single outbound GETs; [API] layers typed operations on top of any
// [Requester], so the same decoding works directly against the network or
// behind a cache.
package rawg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Keksclan/gamecatalog/breaker"
	"github.com/Keksclan/gamecatalog/metrics"
	"github.com/Keksclan/gamecatalog/ratelimit"
)

const (
	DefaultBaseURL = "https://api.rawg.io/api"
	DefaultTimeout = 10 * time.Second
)

// ErrMissingAPIKey is returned by [New] when no API key is supplied.
var ErrMissingAPIKey = errors.New("rawg: api key required")

// Client issues authenticated GET requests against the RAWG API.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	timeout time.Duration

	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && raw != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout bounds each individual request. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter paces outbound requests through l.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBreaker stops issuing requests while b is open.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client. apiKey is mandatory.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL: u,
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get performs one GET of endpoint with params and returns the raw body. Any
// timeout, network failure or non-2xx status is returned as a
// *[TransportError].
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.breaker == nil {
		return c.do(ctx, endpoint, params)
	}

	var body []byte
	err := c.breaker.Execute(func() error {
		var err error
		body, err = c.do(ctx, endpoint, params)
		return err
	}, func(err error) bool {
		// Only upstream trouble counts against the breaker.
		return ctx.Err() != nil || isClientError(err)
	})
	if errors.Is(err, breaker.ErrOpen) {
		return nil, &TransportError{Endpoint: endpoint, Err: ErrCircuitOpen}
	}
	return body, err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.Path = path.Join(u.Path, endpoint)
	q := make(url.Values, len(params)+1)
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	route := routeOf(endpoint)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(route, "error", start)
		c.log.Debug().Str("route", route).Err(redact(err)).Msg("rawg request failed")
		return nil, &TransportError{Endpoint: endpoint, Err: redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.ObserveUpstream(route, strconv.Itoa(resp.StatusCode), start)
	c.log.Debug().
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("rawg request")
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: redact(err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, snippet(body)),
		}
	}
	return body, nil
}

// redact strips the request URL from net/http errors; it carries the API key.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

// routeOf turns an endpoint into a low-cardinality metrics label by replacing
// numeric path segments: "/games/3498/movies" becomes "/games/{id}/movies".
func routeOf(endpoint string) string {
	parts := strings.Split(endpoint, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
