package usage

import (
	"context"
	"sync"
)

// MemoryStore keeps events in memory. The zero value is ready to use.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Record implements [Store].
func (m *MemoryStore) Record(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Snapshot implements [Store].
func (m *MemoryStore) Snapshot(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := newAggregator()
	for _, e := range m.events {
		h := e.At.Hour()
		a.action(e.Action, 1)
		a.hour(h, 1)
		if e.App != "" {
			a.app(e.App, h, 1)
		}
	}
	return a.done(), nil
}

// Close implements [Store].
func (m *MemoryStore) Close() error { return nil }
