package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is how long a snapshot stays authoritative.
const DefaultTTL = time.Hour

// Snapshot is an immutable view of the cache. Callers must not modify the
// maps it holds.
type Snapshot struct {
	Entries     map[Kind]map[string]string `json:"entries"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Len returns the number of entries of kind.
func (s *Snapshot) Len(kind Kind) int { return len(s.Entries[kind]) }

// CacheOption configures a [Cache].
type CacheOption func(*Cache)

// WithTTL sets the snapshot lifetime. Defaults to [DefaultTTL].
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheClock replaces time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithSeeds adds entries of kind that are present in every snapshot and
// never expire. Discovered entries with the same key take precedence.
func WithSeeds(kind Kind, entries map[string]string) CacheOption {
	return func(c *Cache) {
		if c.seeds[kind] == nil {
			c.seeds[kind] = make(map[string]string, len(entries))
		}
		for k, v := range entries {
			c.seeds[kind][Key(k)] = v
		}
	}
}

// Cache holds name→path maps per [Kind]. Readers load the current snapshot
// without locking; writers serialise on a mutex, copy the snapshot, modify
// the copy and swap it in.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	seeds map[Kind]map[string]string

	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[Snapshot]
}

// NewCache returns a cache holding only the seed entries. Its snapshot has
// a zero GeneratedAt and is therefore stale.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{ttl: DefaultTTL, now: time.Now, seeds: make(map[Kind]map[string]string)}
	for _, o := range opts {
		o(c)
	}
	c.snap.Store(c.build(nil, time.Time{}))
	return c
}

// build layers entries over the seeds.
func (c *Cache) build(entries map[Kind]map[string]string, at time.Time) *Snapshot {
	s := &Snapshot{Entries: make(map[Kind]map[string]string, len(Kinds)), GeneratedAt: at}
	for _, k := range Kinds {
		m := make(map[string]string, len(c.seeds[k])+len(entries[k]))
		maps.Copy(m, c.seeds[k])
		for name, path := range entries[k] {
			m[Key(name)] = path
		}
		s.Entries[k] = m
	}
	return s
}

// Snapshot returns the current snapshot.
func (c *Cache) Snapshot() *Snapshot { return c.snap.Load() }

// TTL returns the configured lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Fresh reports whether the current snapshot is younger than the TTL.
func (c *Cache) Fresh() bool {
	s := c.snap.Load()
	return !s.GeneratedAt.IsZero() && c.now().Sub(s.GeneratedAt) < c.ttl
}

// Lookup returns the path cached for name.
func (c *Cache) Lookup(kind Kind, name string) (string, bool) {
	p, ok := c.snap.Load().Entries[kind][Key(name)]
	return p, ok
}

// Closest returns the cached key most similar to name, if its similarity is
// at least cutoff.
func (c *Cache) Closest(kind Kind, name string, cutoff float64) (key, path string, ok bool) {
	entries := c.snap.Load().Entries[kind]
	key, ok = closest(entries, Key(name), cutoff)
	if !ok {
		return "", "", false
	}
	return key, entries[key], true
}

// Seeded reports whether name of kind comes from configuration and so never
// expires.
func (c *Cache) Seeded(kind Kind, name string) bool {
	p, ok := c.seeds[kind][Key(name)]
	if !ok {
		return false
	}
	cur, _ := c.Lookup(kind, name)
	return cur == p
}

// Merge adds entries of kind to the cache, keeping everything else. A cache
// that was never generated becomes fresh.
func (c *Cache) Merge(kind Kind, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.snap.Load()
	next := &Snapshot{Entries: make(map[Kind]map[string]string, len(old.Entries)), GeneratedAt: old.GeneratedAt}
	maps.Copy(next.Entries, old.Entries)
	m := maps.Clone(old.Entries[kind])
	if m == nil {
		m = make(map[string]string, len(entries))
	}
	for name, path := range entries {
		m[Key(name)] = path
	}
	next.Entries[kind] = m
	if next.GeneratedAt.IsZero() {
		next.GeneratedAt = c.now()
	}
	c.snap.Store(next)
}

// Replace swaps in a new set of entries generated now. Seeds are re-applied.
func (c *Cache) Replace(entries map[Kind]map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Store(c.build(entries, c.now()))
}

// Invalidate drops every discovered entry. The resulting snapshot is stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Store(c.build(nil, time.Time{}))
	slog.Info("resolve: cache invalidated")
}

// Load replaces the cache with the record stored at path. A missing file is
// not an error. A corrupt file yields [ErrCacheUnreadable] and leaves the
// cache unchanged.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheUnreadable, path, err)
	}
	var rec Snapshot
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheUnreadable, path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Store(c.build(rec.Entries, rec.GeneratedAt))
	slog.Info("resolve: cache loaded", "path", path, "generated_at", rec.GeneratedAt,
		"applications", len(rec.Entries[KindApplication]), "folders", len(rec.Entries[KindFolder]))
	return nil
}

// Persist writes the current snapshot to path. The file is replaced
// atomically.
func (c *Cache) Persist(path string) error {
	data, err := json.MarshalIndent(c.snap.Load(), "", "  ")
	if err != nil {
		return fmt.Errorf("resolve: encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("resolve: persist cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("resolve: persist cache: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("resolve: persist cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("resolve: persist cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("resolve: persist cache: %w", err)
	}
	return nil
}

// RunPersist writes the cache to path every interval and once more when ctx
// is cancelled. Failures are logged.
func (c *Cache) RunPersist(ctx context.Context, path string, interval time.Duration) {
	if path == "" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := c.Persist(path); err != nil {
				slog.Warn("resolve: final cache persist failed", "err", err)
			}
			return
		case <-ticker.C:
			if err := c.Persist(path); err != nil {
				slog.Warn("resolve: cache persist failed", "err", err)
			}
		}
	}
}
