package resolve

import (
	"context"
	"fmt"
	"slices"

	"github.com/MrWong99/friday/pkg/provider/catalog"
)

// Strategy is one discovery step of the cascade. Discover returns a map of
// spoken name to path for kind.
type Strategy struct {
	Name     string
	Kinds    []Kind
	Discover func(ctx context.Context, kind Kind) (map[string]string, error)
}

func (s Strategy) handles(kind Kind) bool { return slices.Contains(s.Kinds, kind) }

// IndexStrategy scans the installed-program index and the user folders.
func IndexStrategy(c catalog.Catalog) Strategy {
	return Strategy{
		Name:  "index",
		Kinds: []Kind{KindApplication, KindFolder},
		Discover: func(ctx context.Context, kind Kind) (map[string]string, error) {
			switch kind {
			case KindApplication:
				return c.DiscoverApplications(ctx)
			case KindFolder:
				return c.DiscoverFolders(ctx)
			}
			return nil, fmt.Errorf("resolve: index cannot discover %s", kind)
		},
	}
}

// ShortcutStrategy scans menu and desktop shortcuts for applications.
func ShortcutStrategy(s catalog.Shortcuts) Strategy {
	return Strategy{
		Name:  "shortcuts",
		Kinds: []Kind{KindApplication},
		Discover: func(ctx context.Context, _ Kind) (map[string]string, error) {
			return s.DiscoverShortcuts(ctx)
		},
	}
}

// WalkStrategy performs a bounded filesystem walk.
func WalkStrategy(w catalog.Walker) Strategy {
	return Strategy{
		Name:  "walk",
		Kinds: []Kind{KindApplication, KindFolder},
		Discover: func(ctx context.Context, kind Kind) (map[string]string, error) {
			switch kind {
			case KindApplication:
				return w.WalkApplications(ctx)
			case KindFolder:
				return w.WalkFolders(ctx)
			}
			return nil, fmt.Errorf("resolve: walk cannot discover %s", kind)
		},
	}
}
