package cache

import (
	"context"
	"time"
)

// Tiered combines an L1 (in-process) and L2 (Redis) cache. Reads check L1
// first, then L2. Writes populate both layers.
type Tiered struct {
	l1 *L1
	l2 *L2
}

// NewTiered creates a two-level cache.
func NewTiered(l1 *L1, l2 *L2) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

// Get checks L1, then L2. An L2 hit is promoted into L1 for no longer than the
// remaining Redis lifetime, so promotion never extends an entry's life.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.l1.Get(ctx, key); err != nil || ok {
		return v, ok, err
	}
	return t.fromL2(ctx, key)
}

// fromL2 only trusts keys with a positive remaining lifetime. A key without
// expiry was not written by this cache and is treated as absent.
func (t *Tiered) fromL2(ctx context.Context, key string) ([]byte, bool, error) {
	v, remaining, ok := t.l2.GetWithTTL(ctx, key)
	if !ok || remaining <= 0 {
		return nil, false, nil
	}
	_ = t.l1.Set(ctx, key, v, remaining)
	return v, true, nil
}

// Set writes the value to both L2 and L1.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_ = t.l2.Set(ctx, key, val, ttl)
	return t.l1.Set(ctx, key, val, ttl)
}
