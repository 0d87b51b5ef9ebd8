package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Keksclan/gamecatalog/cache"
	"github.com/Keksclan/gamecatalog/clock"
	"github.com/Keksclan/gamecatalog/rawg"
	"github.com/Keksclan/gamecatalog/retry"
)

// countingRequester stands in for the network. fn receives the 1-based call
// number.
type countingRequester struct {
	calls atomic.Int32
	fn    func(n int32, endpoint string, params url.Values) ([]byte, error)
}

func (c *countingRequester) Get(_ context.Context, endpoint string, params url.Values) ([]byte, error) {
	n := c.calls.Add(1)
	return c.fn(n, endpoint, params)
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 4, BaseDelay: time.Millisecond, Retryable: rawg.IsRetryable}
}

func newTestL1(t *testing.T, clk clock.Clock) *cache.L1 {
	t.Helper()
	l1, err := cache.NewL1(1000, cache.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(l1.Close)
	return l1
}

// newUpstream starts a fake RAWG API and returns a client pointed at it plus a
// counter of requests served.
func newUpstream(t *testing.T, h http.HandlerFunc) (*rawg.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := rawg.New("test-key", rawg.WithBaseURL(srv.URL), rawg.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, &hits
}

// newTestService wires upstream behind a fresh L1 and a fast retry schedule.
func newTestService(t *testing.T, upstream rawg.Requester, opts ...Option) *Service {
	t.Helper()
	f := NewFetcher(upstream, newTestL1(t, clock.Real{}), WithRetry(fastRetry()))
	svc, err := NewService(f, opts...)
	require.NoError(t, err)
	return svc
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func page[T any](items ...T) rawg.Page[T] {
	return rawg.Page[T]{Count: len(items), Results: items}
}

func ptr[T any](v T) *T { return &v }
