package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] failed or
// was skipped because its breaker is open.
var ErrAllFailed = errors.New("resilience: all backends failed")

// FallbackConfig configures the breaker created for each entry of a
// [FallbackGroup]. The Name field of CircuitBreaker is replaced per entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// EntryStatus is a point-in-time view of one backend in a group.
type EntryStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// FallbackGroup holds a primary backend and ordered fallbacks of the same
// type.
type FallbackGroup[T any] struct {
	cfg FallbackConfig

	mu      sync.RWMutex
	entries []fallbackEntry[T]
}

// NewFallbackGroup creates a group with primary as the first entry.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend. Backends are tried in insertion order.
func (fg *FallbackGroup[T]) AddFallback(name string, backend T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.mu.Lock()
	defer fg.mu.Unlock()
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   backend,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered backends.
func (fg *FallbackGroup[T]) Len() int {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	return len(fg.entries)
}

// Status reports every backend and its breaker state, in order.
func (fg *FallbackGroup[T]) Status() []EntryStatus {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	out := make([]EntryStatus, 0, len(fg.entries))
	for _, e := range fg.entries {
		out = append(out, EntryStatus{Name: e.name, State: e.breaker.State().String()})
	}
	return out
}

func (fg *FallbackGroup[T]) snapshot() []fallbackEntry[T] {
	fg.mu.RLock()
	defer fg.mu.RUnlock()
	return append([]fallbackEntry[T](nil), fg.entries...)
}

// Execute runs fn against each backend in order until one succeeds.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult runs fn against each backend of fg in order until one
// succeeds or returns a neutral error, and returns its result. When every
// backend fails the last error is wrapped in [ErrAllFailed].
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	neutral := fg.cfg.CircuitBreaker.Neutral
	for _, entry := range fg.snapshot() {
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		if neutral != nil && neutral(err) {
			return zero, err
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("resilience: skipping backend, circuit open", "backend", entry.name)
			continue
		}
		slog.Warn("resilience: backend failed, trying next", "backend", entry.name, "err", err)
	}
	if lastErr == nil {
		lastErr = errors.New("no backends registered")
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
