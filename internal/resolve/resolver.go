package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var errNoStrategies = errors.New("resolve: no discovery strategies configured")

// Option configures a [Resolver].
type Option func(*Resolver)

// WithStrategies sets the discovery strategies in priority order.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) { r.strategies = s }
}

// WithFileSearch enables the final full-root search for files.
func WithFileSearch(f *FileSearch) Option {
	return func(r *Resolver) { r.files = f }
}

// WithSimilarityCutoff sets the minimum similarity for nearest-match
// lookups. Defaults to [DefaultSimilarityCutoff].
func WithSimilarityCutoff(cutoff float64) Option {
	return func(r *Resolver) {
		if cutoff > 0 && cutoff <= 1 {
			r.cutoff = cutoff
		}
	}
}

// WithClock replaces time.Now for ResolvedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver runs the resolution cascade. It is safe for concurrent use;
// concurrent refreshes collapse into one.
type Resolver struct {
	cache      *Cache
	strategies []Strategy
	files      *FileSearch
	cutoff     float64
	now        func() time.Time

	refresh singleflight.Group
}

// New returns a Resolver backed by cache.
func New(cache *Cache, opts ...Option) *Resolver {
	r := &Resolver{cache: cache, cutoff: DefaultSimilarityCutoff, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve finds the resource named by text. It returns an error wrapping
// [ErrEntityNotFound] when nothing matched.
func (r *Resolver) Resolve(ctx context.Context, text string, kind Kind) (Entity, error) {
	if kind == KindFile {
		return r.ResolveFile(ctx, text, nil)
	}
	return r.resolve(ctx, Key(text), kind, nil)
}

// ResolveFile finds a file by name. When exts is non-empty only files with
// one of those extensions (".pdf") are accepted.
func (r *Resolver) ResolveFile(ctx context.Context, name string, exts []string) (Entity, error) {
	return r.resolve(ctx, Key(name), KindFile, exts)
}

func (r *Resolver) resolve(ctx context.Context, q string, kind Kind, exts []string) (Entity, error) {
	if q == "" {
		return Entity{}, fmt.Errorf("%w: empty %s name", ErrEntityNotFound, kind)
	}
	accept := func(path string) bool {
		return len(exts) == 0 || slices.Contains(exts, strings.ToLower(filepath.Ext(path)))
	}

	refreshed := false
	if e, ok := r.fromCache(q, kind, accept); ok {
		if r.cache.Fresh() || r.cache.Seeded(kind, e.Name) {
			return e, nil
		}
		if err := r.Refresh(ctx); err != nil {
			slog.Warn("resolve: refresh failed, serving stale entry", "kind", kind, "name", e.Name, "err", err)
			e.Stale = true
			return e, nil
		}
		if e, ok := r.fromCache(q, kind, accept); ok {
			return e, nil
		}
		// The refresh just ran every strategy; only the file search is left.
		refreshed = true
	}

	if !refreshed {
		e, ok, err := r.discover(ctx, q, kind, accept)
		if err != nil || ok {
			return e, err
		}
	}

	if kind == KindFile && r.files != nil {
		m, ok, err := r.files.Search(ctx, q, exts)
		if err != nil {
			return Entity{}, fmt.Errorf("resolve: file search %q: %w", q, err)
		}
		if ok {
			r.cache.Merge(KindFile, map[string]string{q: m.Path})
			e := r.entity(KindFile, q, m.Path, "file-search")
			e.Location = m.Location
			return e, nil
		}
	}
	return Entity{}, fmt.Errorf("%w: %s %q", ErrEntityNotFound, kind, q)
}

// discover runs the strategies handling kind in priority order, merging what
// each finds into the cache, until one yields a match for q.
func (r *Resolver) discover(ctx context.Context, q string, kind Kind, accept func(string) bool) (Entity, bool, error) {
	for _, s := range r.strategies {
		if !s.handles(kind) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Entity{}, false, err
		}
		found, err := s.Discover(ctx, kind)
		if err != nil {
			slog.Warn("resolve: strategy failed", "strategy", s.Name, "kind", kind, "err", err)
			continue
		}
		if len(found) == 0 {
			continue
		}
		r.cache.Merge(kind, found)
		keyed := make(map[string]string, len(found))
		for k, v := range found {
			keyed[Key(k)] = v
		}
		if name, path, _, ok := match(keyed, q, r.cutoff); ok && accept(path) {
			slog.Debug("resolve: discovered", "strategy", s.Name, "kind", kind, "name", name, "path", path)
			return r.entity(kind, name, path, s.Name), true, nil
		}
	}
	return Entity{}, false, nil
}

func (r *Resolver) fromCache(q string, kind Kind, accept func(string) bool) (Entity, bool) {
	if p, ok := r.cache.Lookup(kind, q); ok && accept(p) {
		return r.entity(kind, q, p, "cache"), true
	}
	if k, p, ok := r.cache.Closest(kind, q, r.cutoff); ok && accept(p) {
		return r.entity(kind, k, p, "cache-fuzzy"), true
	}
	return Entity{}, false
}

func (r *Resolver) entity(kind Kind, name, path, strategy string) Entity {
	e := Entity{Kind: kind, Name: name, Path: path, Strategy: strategy, ResolvedAt: r.now()}
	if kind == KindFile && r.files != nil {
		e.Location = r.files.Location(path)
	}
	return e
}

// Refresh re-runs every strategy for every kind it handles and replaces the
// cache with the combined result. Earlier strategies win on key clashes.
// Concurrent calls share one run. A kind whose discovery failed in any
// strategy keeps its previous entries; the cache is left untouched when every
// strategy call failed.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, shared := r.refresh.Do("refresh", func() (any, error) {
		return nil, r.refreshNow(ctx)
	})
	if shared {
		slog.Debug("resolve: joined in-flight refresh")
	}
	return err
}

func (r *Resolver) refreshNow(ctx context.Context) error {
	entries := make(map[Kind]map[string]string)
	failed := make(map[Kind]bool)
	var (
		errs      []error
		succeeded int
	)
	for _, s := range r.strategies {
		for _, kind := range s.Kinds {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := s.Discover(ctx, kind)
			if err != nil {
				errs = append(errs, fmt.Errorf("resolve: %s %s: %w", s.Name, kind, err))
				failed[kind] = true
				continue
			}
			succeeded++
			if entries[kind] == nil {
				entries[kind] = make(map[string]string, len(found))
			}
			for k, v := range found {
				if _, exists := entries[kind][Key(k)]; !exists {
					entries[kind][Key(k)] = v
				}
			}
		}
	}
	if succeeded == 0 {
		if len(errs) == 0 {
			return errNoStrategies
		}
		return errors.Join(errs...)
	}
	for _, err := range errs {
		slog.Warn("resolve: refresh strategy failed", "err", err)
	}
	old := r.cache.Snapshot()
	for kind := range failed {
		if entries[kind] == nil {
			entries[kind] = make(map[string]string, old.Len(kind))
		}
		for k, v := range old.Entries[kind] {
			if _, exists := entries[kind][k]; !exists {
				entries[kind][k] = v
			}
		}
	}
	r.cache.Replace(entries)
	slog.Info("resolve: cache refreshed",
		"applications", len(entries[KindApplication]), "folders", len(entries[KindFolder]))
	return nil
}
