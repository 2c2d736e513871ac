package resolve

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FileSearchConfig bounds a [FileSearch].
type FileSearchConfig struct {
	// Root is the directory searched, usually the home directory.
	Root string

	// MaxDepth limits how deep below Root the walk goes. Defaults to 6.
	MaxDepth int

	// MaxEntries stops the walk after this many entries. Defaults to 50000.
	MaxEntries int

	// Priority scores top-level directories below Root. Higher wins.
	// Defaults to Desktop=2, Documents=1.
	Priority map[string]int

	// Cutoff is the minimum filename similarity. Defaults to
	// [DefaultSimilarityCutoff].
	Cutoff float64
}

// FileSearch finds a file by spoken name anywhere below a root directory.
type FileSearch struct {
	cfg FileSearchConfig
}

// FileMatch is a located file.
type FileMatch struct {
	Path     string
	Location string
}

type candidate struct {
	path     string
	priority int
	similar  bool
}

// NewFileSearch returns a FileSearch with defaults applied.
func NewFileSearch(cfg FileSearchConfig) *FileSearch {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 6
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 50000
	}
	if cfg.Priority == nil {
		cfg.Priority = map[string]int{"Desktop": 2, "Documents": 1}
	}
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = DefaultSimilarityCutoff
	}
	cfg.Root = filepath.Clean(cfg.Root)
	return &FileSearch{cfg: cfg}
}

// fold lowercases s and turns separators into single spaces so that
// "Quarterly_Report-2024" compares equal to "quarterly report 2024".
func fold(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Search walks the root for files named like query, optionally restricted
// to exts (".pdf"). Candidates are ranked by location priority, then by
// shortest path. The best candidate whose name is similar to the query wins;
// failing that, the best candidate containing the query.
func (f *FileSearch) Search(ctx context.Context, query string, exts []string) (FileMatch, bool, error) {
	q := fold(query)
	if q == "" || f.cfg.Root == "" || f.cfg.Root == "." {
		return FileMatch{}, false, nil
	}

	var (
		found   []candidate
		visited int
		base    = strings.Count(f.cfg.Root, string(filepath.Separator))
		stop    = errors.New("budget")
	)
	err := filepath.WalkDir(f.cfg.Root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if de != nil && de.IsDir() && path != f.cfg.Root {
				return fs.SkipDir
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if path == f.cfg.Root {
			return nil
		}
		if visited++; visited > f.cfg.MaxEntries {
			return stop
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			if strings.Count(path, string(filepath.Separator))-base >= f.cfg.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if len(exts) > 0 && !slices.Contains(exts, ext) {
			return nil
		}
		stem := fold(strings.TrimSuffix(name, filepath.Ext(name)))
		similar := Similarity(stem, q) >= f.cfg.Cutoff
		if !similar && !strings.Contains(stem, q) {
			return nil
		}
		found = append(found, candidate{path: path, priority: f.priority(path), similar: similar})
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		return FileMatch{}, false, err
	}
	if len(found) == 0 {
		return FileMatch{}, false, nil
	}

	slices.SortStableFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.path), len(b.path)); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	best := found[0]
	for _, c := range found {
		if c.similar {
			best = c
			break
		}
	}
	return FileMatch{Path: best.path, Location: f.Location(best.path)}, true, nil
}

// topLevel returns the first path element of path below the root.
func (f *FileSearch) topLevel(path string) string {
	rel, err := filepath.Rel(f.cfg.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first
}

func (f *FileSearch) priority(path string) int {
	top := f.topLevel(path)
	for name, score := range f.cfg.Priority {
		if strings.EqualFold(name, top) {
			return score
		}
	}
	return 0
}

// Location describes where path lives: the priority directory it sits
// under, or else its parent directory name.
func (f *FileSearch) Location(path string) string {
	top := f.topLevel(path)
	for name := range f.cfg.Priority {
		if strings.EqualFold(name, top) {
			return name
		}
	}
	dir := filepath.Dir(path)
	if dir == f.cfg.Root {
		return "home folder"
	}
	return filepath.Base(dir) + " folder"
}
