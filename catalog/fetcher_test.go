package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/gamecatalog/cache"
	"github.com/Keksclan/gamecatalog/clock"
	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/rawg"
)

var errUpstream = &rawg.TransportError{Endpoint: "/games", StatusCode: 503, Err: errors.New("unavailable")}

func TestFetcher_ServesFromCacheWithinTTL(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	up := &countingRequester{fn: func(n int32, _ string, _ url.Values) ([]byte, error) {
		return []byte(`{"call":` + string(rune('0'+n)) + `}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, fake), WithRetry(fastRetry()))
	ctx := t.Context()
	params := url.Values{"ordering": {"-rating"}}

	first, err := f.Get(ctx, "/games", params)
	require.NoError(t, err)

	fake.Advance(59 * time.Second)
	second, err := f.Get(ctx, "/games", url.Values{"ordering": {"-rating"}})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), up.calls.Load())

	fake.Advance(time.Second)
	third, err := f.Get(ctx, "/games", params)
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.calls.Load(), "entry must be refetched at exactly the TTL")
	assert.NotEqual(t, first, third)
}

func TestFetcher_ConcurrentCallersShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		<-release
		return []byte(`{"results":[]}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}), WithRetry(fastRetry()))

	const callers = 10
	var wg sync.WaitGroup
	bodies := make([][]byte, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := f.Get(t.Context(), "/games", url.Values{"page_size": {"15"}})
			assert.NoError(t, err)
			bodies[i] = b
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
	for _, b := range bodies {
		assert.JSONEq(t, `{"results":[]}`, string(b))
	}
}

func TestFetcher_RetriesThenSucceeds(t *testing.T) {
	up := &countingRequester{fn: func(n int32, _ string, _ url.Values) ([]byte, error) {
		if n < 3 {
			return nil, errUpstream
		}
		return []byte(`"ok"`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}), WithRetry(fastRetry()))

	b, err := f.Get(t.Context(), "/games", nil)
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(b))
	assert.Equal(t, int32(3), up.calls.Load())
}

func TestFetcher_FailureIsNotCached(t *testing.T) {
	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		return nil, errUpstream
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}), WithRetry(fastRetry()))
	ctx := t.Context()

	_, err := f.Get(ctx, "/games", nil)
	var te *rawg.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int32(4), up.calls.Load(), "every attempt of the budget is used")

	_, err = f.Get(ctx, "/games", nil)
	require.Error(t, err)
	assert.Equal(t, int32(8), up.calls.Load(), "a failed response must not be served from cache")
}

func TestFetcher_CacheBypassRefreshes(t *testing.T) {
	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		return []byte(`{}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}))
	ctx := t.Context()

	_, _ = f.Get(ctx, "/games/1", nil)
	_, _ = f.Get(ctx, "/games/1", nil)
	assert.Equal(t, int32(1), up.calls.Load())

	_, err := f.Get(contextx.WithCacheBypass(ctx), "/games/1", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.calls.Load())

	_, _ = f.Get(ctx, "/games/1", nil)
	assert.Equal(t, int32(2), up.calls.Load(), "the refreshed body is cached")
}

func TestFetcher_RefreshDoesNotJoinPlainFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	up := &countingRequester{fn: func(n int32, _ string, _ url.Values) ([]byte, error) {
		if n == 1 {
			close(started)
			<-release
			return []byte(`{"call":1}`), nil
		}
		return []byte(`{"call":2}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}))
	ctx := t.Context()

	plain := make(chan []byte, 1)
	go func() {
		b, err := f.Get(ctx, "/games/7", nil)
		assert.NoError(t, err)
		plain <- b
	}()
	<-started

	refreshed, err := f.Get(contextx.WithCacheBypass(ctx), "/games/7", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"call":2}`, string(refreshed))

	close(release)
	assert.JSONEq(t, `{"call":1}`, string(<-plain))
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestFetcher_ManyDistinctRequestsStayCached(t *testing.T) {
	l1, err := cache.NewL1(10000)
	require.NoError(t, err)
	t.Cleanup(l1.Close)

	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		return []byte(`{"results":[]}`), nil
	}}
	f := NewFetcher(up, l1)
	ctx := t.Context()

	const terms = 1500
	for round := range 2 {
		for i := range terms {
			_, err := f.Get(ctx, "/games", url.Values{"search": {fmt.Sprintf("term%d", i)}})
			require.NoError(t, err)
		}
		assert.Equal(t, int32(terms), up.calls.Load(), "round %d", round)
	}
}

func TestFetcher_NonPositiveTTLDisablesCaching(t *testing.T) {
	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		return []byte(`{}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}), WithTTL(0))
	ctx := t.Context()

	_, _ = f.Get(ctx, "/games", nil)
	_, _ = f.Get(ctx, "/games", nil)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestFetcher_CallerCancelReturnsPromptly(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	up := &countingRequester{fn: func(int32, string, url.Values) ([]byte, error) {
		<-release
		return []byte(`{}`), nil
	}}
	f := NewFetcher(up, newTestL1(t, clock.Real{}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx, "/games", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
