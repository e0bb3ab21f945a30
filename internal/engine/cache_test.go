package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("transcript", "dQw4w9WgXcQ", "en")
		k2 := CacheKey("transcript", "dQw4w9WgXcQ", "en")
		if k1 != k2 {
			t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
		}
	})

	t.Run("different inputs differ", func(t *testing.T) {
		k1 := CacheKey("transcript", "aaaaaaaaaaa")
		k2 := CacheKey("transcript", "bbbbbbbbbbb")
		if k1 == k2 {
			t.Errorf("different inputs produced same key: %q", k1)
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		if k := CacheKey("test"); !strings.HasPrefix(k, "tg:") {
			t.Errorf("expected tg: prefix, got %q", k)
		}
	})
}

func TestCacheJSONRoundTrip(t *testing.T) {
	c := NewCache("", time.Minute, 100, time.Minute)
	defer c.Close()

	ctx := context.Background()
	key := CacheKey("test", "round-trip")

	if _, ok := CacheLoadJSON[[]string](ctx, c, key); ok {
		t.Error("expected cache miss on empty cache")
	}

	CacheStoreJSON(ctx, c, key, []string{"Hello", "world"})

	got, ok := CacheLoadJSON[[]string](ctx, c, key)
	if !ok {
		t.Fatal("expected cache hit after set")
	}
	if len(got) != 2 || got[1] != "world" {
		t.Errorf("got %v, want [Hello world]", got)
	}
}

func TestCacheExpiration(t *testing.T) {
	c := NewCache("", time.Millisecond, 100, time.Minute)
	defer c.Close()

	ctx := context.Background()
	key := CacheKey("test", "expiry")

	c.Set(ctx, key, []byte("temp"))
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache("", time.Minute, 3, time.Minute)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, CacheKey("evict", fmt.Sprintf("item-%d", i)), []byte(fmt.Sprintf("v%d", i)))
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 3 {
		t.Errorf("expected at most 3 entries after eviction, got %d", count)
	}
}

func TestNilCacheMisses(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("nil cache should always miss")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache: %v", err)
	}
}
