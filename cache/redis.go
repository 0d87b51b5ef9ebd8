package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Keksclan/gamecatalog/metrics"
)

// L2 is a Redis-backed cache layer shared between catalog instances. All
// operations fail soft: if Redis is unavailable, methods return a miss (or
// silently discard the write) instead of surfacing the error to the caller.
type L2 struct {
	rdb    *redis.Client
	prefix string
}

// NewL2 creates a new Redis-backed L2 cache. Keys are namespaced under
// "gamecatalog:".
func NewL2(addr, password string, db int) *L2 {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &L2{rdb: rdb, prefix: "gamecatalog:"}
}

// Get retrieves a value by key. Returns (nil, false, nil) on a miss or when
// Redis is unreachable.
func (l *L2) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, _, ok := l.GetWithTTL(ctx, key)
	return val, ok, nil
}

// GetWithTTL retrieves a value together with its remaining lifetime as
// reported by PTTL. A key without expiry reports a negative duration.
func (l *L2) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	pipe := l.rdb.Pipeline()
	getCmd := pipe.Get(ctx, l.prefix+key)
	ttlCmd := pipe.PTTL(ctx, l.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		// redis.Nil and connection errors alike are a miss.
		metrics.CacheLookups.WithLabelValues("l2", "miss").Inc()
		return nil, 0, false
	}
	val, err := getCmd.Bytes()
	if err != nil {
		metrics.CacheLookups.WithLabelValues("l2", "miss").Inc()
		return nil, 0, false
	}
	metrics.CacheLookups.WithLabelValues("l2", "hit").Inc()
	return val, ttlCmd.Val(), true
}

// Set stores a value under key with the given TTL. A TTL <= 0 stores nothing,
// so every key this layer writes expires. Errors are silently discarded (fail
// soft).
func (l *L2) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_ = l.rdb.Set(ctx, l.prefix+key, val, ttl).Err()
	return nil
}

// Ping checks the Redis connection.
func (l *L2) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (l *L2) Close() error {
	return l.rdb.Close()
}
