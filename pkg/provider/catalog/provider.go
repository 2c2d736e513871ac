// Package catalog defines the discovery ports used to find applications and
// folders on the local machine.
//
// Each method returns a map from a lowercase spoken name ("chrome",
// "downloads") to an absolute path that the system-operations port can open.
// Discovery is best-effort: implementations return whatever they found along
// with an error describing the sources that could not be read.
package catalog

import "context"

// Catalog scans the installed-program index and the well-known user folders.
type Catalog interface {
	DiscoverApplications(ctx context.Context) (map[string]string, error)
	DiscoverFolders(ctx context.Context) (map[string]string, error)
}

// Shortcuts scans menu and desktop shortcuts for launchable applications.
type Shortcuts interface {
	DiscoverShortcuts(ctx context.Context) (map[string]string, error)
}

// Walker performs a bounded filesystem walk. It is the slowest strategy and
// is only consulted when the index and shortcut scans found nothing.
type Walker interface {
	WalkApplications(ctx context.Context) (map[string]string, error)
	WalkFolders(ctx context.Context) (map[string]string, error)
}
