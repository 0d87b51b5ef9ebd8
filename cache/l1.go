package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Keksclan/gamecatalog/clock"
	"github.com/Keksclan/gamecatalog/metrics"
)

// entry is what L1 stores per key. Freshness is decided against the injected
// clock, so ristretto's own TTL is only a memory backstop.
type entry struct {
	payload  []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) >= e.ttl
}

// L1 is an in-process cache backed by ristretto.
type L1 struct {
	rc    *ristretto.Cache[string, entry]
	clock clock.Clock
}

// L1Option configures an L1.
type L1Option func(*L1)

// WithClock sets the clock used to judge entry freshness.
func WithClock(c clock.Clock) L1Option {
	return func(l *L1) {
		if c != nil {
			l.clock = c
		}
	}
}

// NewL1 creates a new L1 cache holding at most maxEntries responses. Every
// entry costs 1 and ristretto's per-item bookkeeping is not charged, so the
// bound is an entry count.
func NewL1(maxEntries int64, opts ...L1Option) (*L1, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, entry]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	l := &L1{rc: rc, clock: clock.Real{}}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Get retrieves a value by key. An expired entry is removed and reported as a
// miss.
func (l *L1) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, result := l.lookup(key)
	metrics.CacheLookups.WithLabelValues("l1", result).Inc()
	return v, result == "hit", nil
}

func (l *L1) lookup(key string) ([]byte, string) {
	e, ok := l.rc.Get(key)
	if !ok {
		return nil, "miss"
	}
	if e.expired(l.clock.Now()) {
		l.rc.Del(key)
		return nil, "expired"
	}
	return bytes.Clone(e.payload), "hit"
}

// Set stores a value under key with the given TTL. A non-positive TTL
// describes an entry that is already stale, so nothing is stored.
func (l *L1) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	l.rc.SetWithTTL(key, entry{
		payload:  bytes.Clone(val),
		storedAt: l.clock.Now(),
		ttl:      ttl,
	}, 1, ttl)
	l.rc.Wait()
	return nil
}

// Close stops ristretto's background goroutines.
func (l *L1) Close() {
	l.rc.Close()
}
