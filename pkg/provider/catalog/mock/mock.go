// Package mock provides in-memory implementations of the catalog ports for
// unit tests. Each method returns a copy of the configured map and records
// that it was called.
package mock

import (
	"context"
	"maps"
	"sync"

	"github.com/MrWong99/friday/pkg/provider/catalog"
)

// Catalog is a mock implementation of [catalog.Catalog].
type Catalog struct {
	mu sync.Mutex

	Applications map[string]string
	Folders      map[string]string

	// ApplicationsErr and FoldersErr are returned alongside the maps.
	ApplicationsErr error
	FoldersErr      error

	ApplicationsCalls int
	FoldersCalls      int
}

var _ catalog.Catalog = (*Catalog)(nil)

// DiscoverApplications implements [catalog.Catalog].
func (c *Catalog) DiscoverApplications(context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplicationsCalls++
	return maps.Clone(c.Applications), c.ApplicationsErr
}

// DiscoverFolders implements [catalog.Catalog].
func (c *Catalog) DiscoverFolders(context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.FoldersCalls++
	return maps.Clone(c.Folders), c.FoldersErr
}

// Reset clears the call counters.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ApplicationsCalls = 0
	c.FoldersCalls = 0
}

// Shortcuts is a mock implementation of [catalog.Shortcuts].
type Shortcuts struct {
	mu sync.Mutex

	Result map[string]string
	Err    error
	Calls  int
}

var _ catalog.Shortcuts = (*Shortcuts)(nil)

// DiscoverShortcuts implements [catalog.Shortcuts].
func (s *Shortcuts) DiscoverShortcuts(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	return maps.Clone(s.Result), s.Err
}

// Walker is a mock implementation of [catalog.Walker].
type Walker struct {
	mu sync.Mutex

	Applications map[string]string
	Folders      map[string]string
	Err          error

	ApplicationsCalls int
	FoldersCalls      int
}

var _ catalog.Walker = (*Walker)(nil)

// WalkApplications implements [catalog.Walker].
func (w *Walker) WalkApplications(context.Context) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ApplicationsCalls++
	return maps.Clone(w.Applications), w.Err
}

// WalkFolders implements [catalog.Walker].
func (w *Walker) WalkFolders(context.Context) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.FoldersCalls++
	return maps.Clone(w.Folders), w.Err
}
