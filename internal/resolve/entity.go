// Package resolve turns spoken references ("chrome", "my downloads folder")
// into concrete paths.
//
// A [Resolver] runs a fixed cascade: exact lookup in the [Cache], nearest
// match in the cache, ordered discovery [Strategy] values, and for files a
// ranked [FileSearch]. Discovered entries are merged back into the cache so
// the next lookup is a hit.
package resolve

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEntityNotFound is returned when every step of the cascade missed.
	ErrEntityNotFound = errors.New("resolve: entity not found")

	// ErrCacheUnreadable reports a cache file that exists but cannot be
	// decoded. It is never fatal: the cache starts empty.
	ErrCacheUnreadable = errors.New("resolve: cache unreadable")
)

// Kind is the category of a resource.
type Kind string

const (
	KindApplication Kind = "application"
	KindFolder      Kind = "folder"
	KindFile        Kind = "file"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{KindApplication, KindFolder, KindFile}

// Entity is a resolved resource.
type Entity struct {
	Kind Kind

	// Name is the canonical key the entity was found under.
	Name string

	Path string

	// Strategy names the cascade step that produced the entity:
	// "cache", "cache-fuzzy", a strategy name, or "file-search".
	Strategy string

	ResolvedAt time.Time

	// Location is a spoken description of where a file lives, such as
	// "Desktop". Empty for applications and folders.
	Location string

	// Stale is set when the entity came from an expired cache snapshot
	// because the refresh failed.
	Stale bool
}

// Key canonicalises a spoken name: lowercase with single spaces.
func Key(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
