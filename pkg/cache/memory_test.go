package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

func TestMemoryCacheGetSet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Get(ctx, "missing", new(string)); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want miss, got %v", err)
	}
	if err := mc.Set(ctx, "raw", "hello", time.Minute); err != nil {
		t.Fatal(err)
	}
	var s string
	if err := mc.Get(ctx, "raw", &s); err != nil || s != "hello" {
		t.Fatalf("got %q %v", s, err)
	}

	_ = mc.Set(ctx, "typed", point{Symbol: "TCS", Weight: 0.5}, time.Minute)
	var p point
	if err := mc.Get(ctx, "typed", &p); err != nil || p.Symbol != "TCS" || p.Weight != 0.5 {
		t.Fatalf("got %+v %v", p, err)
	}

	_ = mc.Set(ctx, "json", `{"symbol":"INFY","weight":-0.5}`, time.Minute)
	if err := mc.Get(ctx, "json", &p); err != nil || p.Symbol != "INFY" {
		t.Fatalf("json string not decoded: %+v %v", p, err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	now := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Second)
	now = now.Add(2 * time.Second)
	if err := mc.Get(ctx, "k", new(string)); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired entry served: %v", err)
	}
	if mc.Len() != 0 {
		t.Fatalf("expired entry kept, len %d", mc.Len())
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	_ = mc.Get(ctx, "a", new(string))
	_ = mc.Set(ctx, "c", "3", time.Minute)

	if err := mc.Get(ctx, "b", new(string)); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if err := mc.Get(ctx, k, new(string)); err != nil {
			t.Fatalf("%s evicted: %v", k, err)
		}
	}
}

func TestMemoryCacheDeleteByPrefix(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, Key("evaluate", "maru", "TCS"), "x", time.Minute)
	_ = mc.Set(ctx, Key("evaluate", "maru", "INFY,TCS"), "x", time.Minute)
	_ = mc.Set(ctx, Key("evaluate", "maru2", "TCS"), "x", time.Minute)

	if err := mc.DeleteByPrefix(ctx, Key("evaluate", "maru")+":"); err != nil {
		t.Fatal(err)
	}
	if mc.Len() != 1 {
		t.Fatalf("want only maru2 left, len %d", mc.Len())
	}
	if err := mc.Get(ctx, "evaluate:maru2:TCS", new(string)); err != nil {
		t.Fatalf("maru2 removed: %v", err)
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	now := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := mc.TryLock(ctx, "cycle:maru", time.Minute); !ok {
		t.Fatal("first lock refused")
	}
	if ok, _ := mc.TryLock(ctx, "cycle:maru", time.Minute); ok {
		t.Fatal("second lock granted")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := mc.TryLock(ctx, "cycle:maru", time.Minute); !ok {
		t.Fatal("expired lock not reacquired")
	}
}
