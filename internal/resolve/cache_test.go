package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestCache_NewIsStale(t *testing.T) {
	t.Parallel()
	c := NewCache()
	if c.Fresh() {
		t.Error("new cache reports fresh")
	}
	if _, ok := c.Lookup(KindApplication, "chrome"); ok {
		t.Error("empty cache returned a hit")
	}
}

func TestCache_MergeKeepsExisting(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := NewCache(WithCacheClock(clk.Now))
	c.Merge(KindApplication, map[string]string{"Firefox": "/usr/bin/firefox"})
	before := c.Snapshot()
	c.Merge(KindApplication, map[string]string{"chrome": "/usr/bin/chrome"})

	if p, ok := c.Lookup(KindApplication, "firefox"); !ok || p != "/usr/bin/firefox" {
		t.Errorf("firefox = %q, %v", p, ok)
	}
	if p, ok := c.Lookup(KindApplication, "CHROME"); !ok || p != "/usr/bin/chrome" {
		t.Errorf("chrome = %q, %v", p, ok)
	}
	if before.Len(KindApplication) != 1 {
		t.Errorf("earlier snapshot mutated: %d entries", before.Len(KindApplication))
	}
	if !c.Fresh() {
		t.Error("merge into an empty cache should stamp it")
	}
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	c := NewCache(WithCacheClock(clk.Now), WithTTL(time.Hour))
	c.Replace(map[Kind]map[string]string{KindFolder: {"downloads": "/home/u/Downloads"}})
	if !c.Fresh() {
		t.Fatal("replaced cache not fresh")
	}
	clk.Advance(59 * time.Minute)
	if !c.Fresh() {
		t.Error("cache stale before TTL")
	}
	clk.Advance(time.Minute)
	if c.Fresh() {
		t.Error("cache fresh at TTL")
	}
}

func TestCache_SeedsSurviveInvalidate(t *testing.T) {
	t.Parallel()
	c := NewCache(WithSeeds(KindApplication, map[string]string{"Code": "/usr/bin/code"}))
	c.Merge(KindApplication, map[string]string{"chrome": "/usr/bin/chrome"})
	c.Invalidate()

	if _, ok := c.Lookup(KindApplication, "chrome"); ok {
		t.Error("discovered entry survived invalidate")
	}
	if p, ok := c.Lookup(KindApplication, "code"); !ok || p != "/usr/bin/code" {
		t.Errorf("seed = %q, %v", p, ok)
	}
	if !c.Seeded(KindApplication, "code") {
		t.Error("Seeded(code) = false")
	}
	c.Merge(KindApplication, map[string]string{"code": "/opt/code/bin/code"})
	if c.Seeded(KindApplication, "code") {
		t.Error("discovered override still reported as seed")
	}
}

func TestCache_Closest(t *testing.T) {
	t.Parallel()
	c := NewCache()
	c.Merge(KindFolder, map[string]string{"downloads": "/d", "documents": "/docs", "music": "/m"})

	key, path, ok := c.Closest(KindFolder, "download", DefaultSimilarityCutoff)
	if !ok || key != "downloads" || path != "/d" {
		t.Errorf("Closest(download) = %q %q %v", key, path, ok)
	}
	if _, _, ok := c.Closest(KindFolder, "qzx", DefaultSimilarityCutoff); ok {
		t.Error("Closest(qzx) matched")
	}
}

func TestCache_PersistLoad(t *testing.T) {
	t.Parallel()
	clk := newFakeClock()
	path := filepath.Join(t.TempDir(), "sub", "cache.json")

	c := NewCache(WithCacheClock(clk.Now))
	c.Replace(map[Kind]map[string]string{
		KindApplication: {"chrome": "/usr/bin/chrome"},
		KindFolder:      {"downloads": "/home/u/Downloads"},
	})
	if err := c.Persist(path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded := NewCache(WithCacheClock(clk.Now))
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p, ok := loaded.Lookup(KindFolder, "downloads"); !ok || p != "/home/u/Downloads" {
		t.Errorf("downloads = %q, %v", p, ok)
	}
	if !loaded.Snapshot().GeneratedAt.Equal(clk.Now()) {
		t.Errorf("GeneratedAt = %v, want %v", loaded.Snapshot().GeneratedAt, clk.Now())
	}
	if !loaded.Fresh() {
		t.Error("loaded cache should keep its timestamp and be fresh")
	}
}

func TestCache_LoadMissingAndCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := NewCache()

	if err := c.Load(filepath.Join(dir, "missing.json")); err != nil {
		t.Errorf("Load(missing) = %v, want nil", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Merge(KindApplication, map[string]string{"chrome": "/c"})
	err := c.Load(corrupt)
	if !errors.Is(err, ErrCacheUnreadable) {
		t.Fatalf("Load(corrupt) = %v, want ErrCacheUnreadable", err)
	}
	if _, ok := c.Lookup(KindApplication, "chrome"); !ok {
		t.Error("corrupt load discarded existing entries")
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b string
		want float64
	}{
		{"chrome", "chrome", 1},
		{"", "", 1},
		{"abc", "", 0},
		{"download", "downloads", 16.0 / 17.0},
		{"abcd", "wxyz", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClosest_TieBrokenByKeyOrder(t *testing.T) {
	t.Parallel()
	entries := map[string]string{"cb": "/2", "ca": "/1"}
	if k, ok := closest(entries, "c", 0.5); !ok || k != "ca" {
		t.Errorf("closest = %q, %v, want ca", k, ok)
	}
}
