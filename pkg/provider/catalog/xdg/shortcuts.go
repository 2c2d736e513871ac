package xdg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/friday/pkg/provider/catalog"
)

// Shortcuts implements [catalog.Shortcuts] by scanning launcher directories
// such as ~/Desktop for .desktop files, symlinks and executables.
type Shortcuts struct {
	dirs []string
}

var _ catalog.Shortcuts = (*Shortcuts)(nil)

// NewShortcuts returns a scanner over dirs. With no dirs it scans the
// user's Desktop and autostart directories.
func NewShortcuts(dirs ...string) *Shortcuts {
	if len(dirs) == 0 {
		home, _ := os.UserHomeDir()
		dirs = []string{
			filepath.Join(home, "Desktop"),
			filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), "autostart"),
		}
	}
	return &Shortcuts{dirs: dirs}
}

// DiscoverShortcuts implements [catalog.Shortcuts].
func (s *Shortcuts) DiscoverShortcuts(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	var errs []error
	for _, dir := range s.dirs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := scanDesktopDir(dir, out); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("xdg: shortcuts %s: %w", dir, err))
			}
			continue
		}
		scanLaunchers(dir, out)
	}
	return out, errors.Join(errs...)
}

// scanLaunchers adds symlinks and executable files in dir under their
// lowercase base name.
func scanLaunchers(dir string, out map[string]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, de := range entries {
		name := de.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".desktop") || de.IsDir() {
			continue
		}
		path := filepath.Join(dir, name)
		if de.Type()&fs.ModeSymlink == 0 && !executable(de) {
			continue
		}
		key := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if _, exists := out[key]; !exists {
			out[key] = path
		}
	}
}

func executable(de fs.DirEntry) bool {
	info, err := de.Info()
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
