package xdg

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/friday/pkg/provider/catalog"
)

const (
	defaultWalkDepth   = 3
	defaultWalkEntries = 20000
)

// WalkerConfig bounds a [Walker].
type WalkerConfig struct {
	// Roots are walked for directories. Defaults to the home directory.
	Roots []string

	// AppRoots are walked for executables in addition to $PATH.
	// Defaults to /opt.
	AppRoots []string

	// MaxDepth limits how far below a root the walk descends. Defaults to 3.
	MaxDepth int

	// MaxEntries stops a walk after visiting this many entries. Defaults to
	// 20000.
	MaxEntries int
}

// Walker implements [catalog.Walker] with a depth- and entry-bounded walk
// that skips hidden entries.
type Walker struct {
	cfg WalkerConfig
}

var _ catalog.Walker = (*Walker)(nil)

// NewWalker returns a Walker with defaults applied to cfg.
func NewWalker(cfg WalkerConfig) *Walker {
	if len(cfg.Roots) == 0 {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Roots = []string{home}
		}
	}
	if cfg.AppRoots == nil {
		cfg.AppRoots = []string{"/opt"}
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultWalkDepth
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultWalkEntries
	}
	return &Walker{cfg: cfg}
}

// WalkFolders implements [catalog.Walker]. When two directories share a
// name the shallower one wins.
func (w *Walker) WalkFolders(ctx context.Context) (map[string]string, error) {
	return w.walk(ctx, w.cfg.Roots, w.cfg.MaxDepth, func(de fs.DirEntry) bool { return de.IsDir() })
}

// WalkApplications implements [catalog.Walker]. Every executable directly in
// a $PATH directory is indexed, then AppRoots are walked.
func (w *Walker) WalkApplications(ctx context.Context) (map[string]string, error) {
	isExec := func(de fs.DirEntry) bool { return !de.IsDir() && executable(de) }
	out, err := w.walk(ctx, filepath.SplitList(os.Getenv("PATH")), 1, isExec)
	if err != nil {
		return out, err
	}
	more, err := w.walk(ctx, w.cfg.AppRoots, w.cfg.MaxDepth, isExec)
	for k, v := range more {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out, err
}

func (w *Walker) walk(ctx context.Context, roots []string, maxDepth int, keep func(fs.DirEntry) bool) (map[string]string, error) {
	out := make(map[string]string)
	depths := make(map[string]int)
	visited := 0
	errBudget := errors.New("entry budget exhausted")

	for _, root := range roots {
		root = filepath.Clean(root)
		base := strings.Count(root, string(filepath.Separator))
		err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped.
				if de != nil && de.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if path == root {
				return nil
			}
			visited++
			if visited > w.cfg.MaxEntries {
				return errBudget
			}
			if strings.HasPrefix(de.Name(), ".") {
				if de.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			depth := strings.Count(path, string(filepath.Separator)) - base
			if keep(de) {
				key := strings.ToLower(de.Name())
				if !de.IsDir() {
					key = strings.TrimSuffix(key, strings.ToLower(filepath.Ext(key)))
				}
				if d, exists := depths[key]; !exists || depth < d {
					out[key] = path
					depths[key] = depth
				}
			}
			if de.IsDir() && depth >= maxDepth {
				return fs.SkipDir
			}
			return nil
		})
		switch {
		case errors.Is(err, errBudget):
			return out, nil
		case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			return out, err
		}
	}
	return out, nil
}
