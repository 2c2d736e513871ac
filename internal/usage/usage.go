// Package usage records which commands are issued and when, and turns the
// history into suggestions ("You usually open chrome around this time").
//
// Usage data is advisory. Nothing in the assistant depends on it for
// correctness, and [Guard] makes every store failure non-fatal.
package usage

import (
	"context"
	"slices"
	"time"
)

// Event is one dispatched command.
type Event struct {
	// Action is the intent action, such as "open_app".
	Action string

	// App is the application name for open_app and open_and_search.
	App string

	At time.Time
}

// AppUsage summarises how often an application was opened.
type AppUsage struct {
	Count int

	// Hours holds the hour of day (0-23) of every recorded use, ascending.
	Hours []int
}

// Snapshot is the aggregated usage history.
type Snapshot struct {
	CommandFrequency map[string]int
	HourlyUsage      [24]int
	AppUsage         map[string]AppUsage
}

// NewSnapshot returns an empty snapshot with allocated maps.
func NewSnapshot() Snapshot {
	return Snapshot{CommandFrequency: map[string]int{}, AppUsage: map[string]AppUsage{}}
}

// Store persists usage events.
type Store interface {
	Record(ctx context.Context, e Event) error
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// aggregator builds a Snapshot from grouped counts, the shape both SQL
// backends return.
type aggregator struct {
	snap Snapshot
}

func newAggregator() *aggregator { return &aggregator{snap: NewSnapshot()} }

func (a *aggregator) action(name string, n int) { a.snap.CommandFrequency[name] += n }

func (a *aggregator) hour(h, n int) {
	if h >= 0 && h < 24 {
		a.snap.HourlyUsage[h] += n
	}
}

func (a *aggregator) app(name string, h, n int) {
	u := a.snap.AppUsage[name]
	u.Count += n
	for range n {
		u.Hours = append(u.Hours, h)
	}
	a.snap.AppUsage[name] = u
}

func (a *aggregator) done() Snapshot {
	for name, u := range a.snap.AppUsage {
		slices.Sort(u.Hours)
		a.snap.AppUsage[name] = u
	}
	return a.snap
}
