package usage

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Guard wraps a [Store] and makes every operation non-fatal. Failures are
// logged and swallowed; [Guard.IsDegraded] reports whether the most recent
// operation failed.
//
// Guard implements [Store]. All methods are safe for concurrent use.
type Guard struct {
	store    Store
	degraded atomic.Bool
}

var _ Store = (*Guard)(nil)

// NewGuard wraps store.
func NewGuard(store Store) *Guard { return &Guard{store: store} }

// Record implements [Store]. It always returns nil.
func (g *Guard) Record(ctx context.Context, e Event) error {
	if err := g.store.Record(ctx, e); err != nil {
		g.degraded.Store(true)
		slog.Warn("usage: record failed, swallowing error", "action", e.Action, "err", err)
		return nil
	}
	g.degraded.Store(false)
	return nil
}

// Snapshot implements [Store]. On failure it returns an empty snapshot and
// a nil error.
func (g *Guard) Snapshot(ctx context.Context) (Snapshot, error) {
	s, err := g.store.Snapshot(ctx)
	if err != nil {
		g.degraded.Store(true)
		slog.Warn("usage: snapshot failed, returning empty", "err", err)
		return NewSnapshot(), nil
	}
	g.degraded.Store(false)
	return s, nil
}

// Close implements [Store].
func (g *Guard) Close() error { return g.store.Close() }

// IsDegraded reports whether the last operation on the store failed.
func (g *Guard) IsDegraded() bool { return g.degraded.Load() }

// Ping checks the underlying store when it supports it.
func (g *Guard) Ping(ctx context.Context) error {
	if p, ok := g.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
