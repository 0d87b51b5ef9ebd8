package catalog

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Keksclan/gamecatalog/cache"
	"github.com/Keksclan/gamecatalog/contextx"
	"github.com/Keksclan/gamecatalog/rawg"
	"github.com/Keksclan/gamecatalog/retry"
)

// DefaultTTL is how long an upstream response stays servable from cache.
const DefaultTTL = 60 * time.Second

// Fetcher is the composed request path in front of the catalog API: a cache
// lookup, then a deduplicated and retried upstream call whose successful
// result is stored. It satisfies [rawg.Requester], so [rawg.API] can decode
// through it.
type Fetcher struct {
	upstream rawg.Requester
	cache    cache.Cache
	dedup    cache.Deduplicator
	ttl      time.Duration
	retry    retry.Config
	log      zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTTL sets the cache lifetime of stored responses. A ttl <= 0 turns
// caching off while keeping deduplication and retries.
func WithTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) { f.ttl = ttl }
}

// WithRetry replaces the retry schedule applied to upstream calls.
func WithRetry(cfg retry.Config) FetcherOption {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithFetcherLogger sets the logger used for upstream failures.
func WithFetcherLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = l }
}

// NewFetcher wraps upstream with cache c. Without options responses live for
// DefaultTTL and upstream calls follow [retry.Default] restricted to
// [rawg.IsRetryable] errors.
func NewFetcher(upstream rawg.Requester, c cache.Cache, opts ...FetcherOption) *Fetcher {
	rc := retry.Default()
	rc.Retryable = rawg.IsRetryable
	f := &Fetcher{
		upstream: upstream,
		cache:    c,
		ttl:      DefaultTTL,
		retry:    rc,
		log:      zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// refreshFlight prefixes the flight key of cache-bypassing requests so they
// never join a flight that may answer from cache.
const refreshFlight = "!refresh:"

// Get returns the body for endpoint and params. A fresh cached response is
// returned without touching the network. Otherwise concurrent identical
// requests share a single upstream call. Failures are returned to every
// waiter and never cached.
//
// A request marked with [contextx.WithCacheBypass] skips the cache lookup and
// only shares an upstream call with other bypassing requests.
func (f *Fetcher) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	key := cache.Key(endpoint, params)
	bypass := contextx.CacheBypass(ctx)
	flight := key
	if bypass {
		flight = refreshFlight + key
	} else if v, ok, _ := f.cache.Get(ctx, key); ok {
		return v, nil
	}

	v, _, err := f.dedup.Do(ctx, flight, func(ctx context.Context) ([]byte, error) {
		// The call we missed may have settled before this one registered.
		if !bypass {
			if v, ok, _ := f.cache.Get(ctx, key); ok {
				return v, nil
			}
		}
		body, err := retry.Do(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
			return f.upstream.Get(ctx, endpoint, params)
		})
		if err != nil {
			f.log.Debug().Err(err).Str("key", key).Msg("upstream fetch failed")
			return nil, err
		}
		_ = f.cache.Set(ctx, key, body, f.ttl)
		return body, nil
	})
	return v, err
}
