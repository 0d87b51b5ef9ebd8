package cache

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"
)

// redisL2 connects to the Redis named by REDIS_ADDR or skips the test.
func redisL2(t *testing.T) *L2 {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	l2 := NewL2(addr, "", 0)
	t.Cleanup(func() { _ = l2.Close() })
	if err := l2.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return l2
}

// testKey is unique per test so runs against a shared Redis do not collide.
func testKey(t *testing.T) string {
	return Key("/games", url.Values{"search": {t.Name()}, "stamp": {time.Now().Format(time.RFC3339Nano)}})
}

func TestL2_MissThenHit(t *testing.T) {
	l2 := redisL2(t)
	ctx := t.Context()
	key := testKey(t)

	if _, ok, err := l2.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}

	body := []byte(`{"count":1,"results":[{"id":3328,"name":"The Witcher 3"}]}`)
	if err := l2.Set(ctx, key, body, 10*time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, ok, err := l2.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != string(body) {
		t.Fatalf("got %s, want %s", got, body)
	}
}

func TestTiered_SharedAcrossInstances(t *testing.T) {
	l2 := redisL2(t)
	ctx := t.Context()
	key := testKey(t)

	first := NewTiered(mustNewL1(t), l2)
	if err := first.Set(ctx, key, []byte(`{"results":[]}`), 30*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A second process has a cold L1 and must be served by Redis.
	second := NewTiered(mustNewL1(t), l2)
	v, ok, err := second.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit via L2, got ok=%v err=%v", ok, err)
	}
	if string(v) != `{"results":[]}` {
		t.Fatalf("unexpected value %s", v)
	}
}

func TestTiered_KeyWithoutExpiryIsAMiss(t *testing.T) {
	l2 := redisL2(t)
	ctx := t.Context()
	key := testKey(t)

	if err := l2.rdb.Set(ctx, l2.prefix+key, "foreign", 0).Err(); err != nil {
		t.Fatalf("raw set: %v", err)
	}
	t.Cleanup(func() { l2.rdb.Del(context.Background(), l2.prefix+key) })

	tc := NewTiered(mustNewL1(t), l2)
	if _, ok, _ := tc.Get(ctx, key); ok {
		t.Fatal("key without expiry must not be served")
	}
	if _, ok, _ := tc.l1.Get(ctx, key); ok {
		t.Fatal("key without expiry must not be promoted")
	}
}

func TestL2_NonPositiveTTLIsNotStored(t *testing.T) {
	l2 := redisL2(t)
	ctx := t.Context()
	key := testKey(t)

	_ = l2.Set(ctx, key, []byte("v"), 0)
	if _, ok, _ := l2.Get(ctx, key); ok {
		t.Fatal("zero TTL write must be dropped")
	}
}

func TestTiered_PromotionKeepsRemainingTTL(t *testing.T) {
	l2 := redisL2(t)
	ctx := t.Context()
	key := testKey(t)

	_ = l2.Set(ctx, key, []byte("v"), 2*time.Second)

	_, remaining, ok := l2.GetWithTTL(ctx, key)
	if !ok {
		t.Fatal("expected L2 hit")
	}
	if remaining <= 0 || remaining > 2*time.Second {
		t.Fatalf("remaining = %v, want within (0, 2s]", remaining)
	}

	tc := NewTiered(mustNewL1(t), l2)
	if _, ok, _ := tc.Get(ctx, key); !ok {
		t.Fatal("expected tiered hit via L2")
	}

	time.Sleep(2500 * time.Millisecond)
	if _, ok, _ := tc.Get(ctx, key); ok {
		t.Fatal("promoted entry outlived its L2 lifetime")
	}
}

func TestL2_UnreachableIsAMiss(t *testing.T) {
	l2 := NewL2("localhost:1", "", 0)
	t.Cleanup(func() { _ = l2.Close() })

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	if _, ok, err := l2.Get(ctx, "/games"); err != nil || ok {
		t.Fatalf("expected a silent miss, got ok=%v err=%v", ok, err)
	}
	if err := l2.Set(ctx, "/games", []byte("v"), time.Second); err != nil {
		t.Fatalf("expected writes to be dropped silently, got: %v", err)
	}
}
