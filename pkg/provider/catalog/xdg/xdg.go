// Package xdg discovers applications and folders on freedesktop systems.
//
// Applications come from .desktop entries in the XDG data directories,
// folders from the user-dirs configuration. [Shortcuts] scans desktop
// launchers and [Walker] performs a bounded walk for executables and
// directories.
package xdg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/friday/pkg/provider/catalog"
)

// Option configures a [Catalog].
type Option func(*Catalog)

// WithHome overrides the home directory. Defaults to os.UserHomeDir.
func WithHome(dir string) Option {
	return func(c *Catalog) { c.home = dir }
}

// WithDataDirs overrides the directories searched for "applications"
// subdirectories. Defaults to $XDG_DATA_HOME and $XDG_DATA_DIRS.
func WithDataDirs(dirs ...string) Option {
	return func(c *Catalog) { c.dataDirs = dirs }
}

// WithConfigHome overrides $XDG_CONFIG_HOME, where user-dirs.dirs lives.
func WithConfigHome(dir string) Option {
	return func(c *Catalog) { c.configHome = dir }
}

// Catalog implements [catalog.Catalog] for XDG desktops.
type Catalog struct {
	home       string
	dataDirs   []string
	configHome string
}

var _ catalog.Catalog = (*Catalog)(nil)

// New returns a Catalog using the environment of the current user.
func New(opts ...Option) *Catalog {
	c := &Catalog{}
	for _, o := range opts {
		o(c)
	}
	if c.home == "" {
		c.home, _ = os.UserHomeDir()
	}
	if c.dataDirs == nil {
		c.dataDirs = defaultDataDirs(c.home)
	}
	if c.configHome == "" {
		c.configHome = envOr("XDG_CONFIG_HOME", filepath.Join(c.home, ".config"))
	}
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDirs(home string) []string {
	dirs := []string{envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))}
	dirs = append(dirs, filepath.SplitList(envOr("XDG_DATA_DIRS", "/usr/local/share:/usr/share"))...)
	return append(dirs, "/var/lib/flatpak/exports/share", "/var/lib/snapd/desktop")
}

// DiscoverApplications implements [catalog.Catalog]. Entries from earlier
// data directories take precedence, matching XDG lookup order.
func (c *Catalog) DiscoverApplications(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	var errs []error
	for i := len(c.dataDirs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		dir := filepath.Join(c.dataDirs[i], "applications")
		if err := scanDesktopDir(dir, out); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("xdg: scan %s: %w", dir, err))
		}
	}
	slog.Debug("xdg: applications discovered", "count", len(out))
	return out, errors.Join(errs...)
}

// standardFolders are added for every user, whether or not user-dirs.dirs
// lists them.
var standardFolders = []string{"Desktop", "Documents", "Downloads", "Music", "Pictures", "Videos"}

// DiscoverFolders implements [catalog.Catalog].
func (c *Catalog) DiscoverFolders(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := map[string]string{"home": c.home}
	for _, name := range standardFolders {
		path := filepath.Join(c.home, name)
		if isDir(path) {
			out[strings.ToLower(name)] = path
		}
	}
	userDirs, err := readUserDirs(filepath.Join(c.configHome, "user-dirs.dirs"), c.home)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return out, fmt.Errorf("xdg: user dirs: %w", err)
	}
	for kind, path := range userDirs {
		if path == c.home || !isDir(path) {
			continue
		}
		out[strings.ToLower(filepath.Base(path))] = path
		// XDG_DOWNLOAD_DIR is also reachable as "download" and "downloads".
		out[kind] = path
		if !strings.HasSuffix(kind, "s") {
			out[kind+"s"] = path
		}
	}
	return out, nil
}

// readUserDirs parses user-dirs.dirs lines of the form
// XDG_DOWNLOAD_DIR="$HOME/Downloads" into {"download": "/home/u/Downloads"}.
func readUserDirs(path, home string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.HasPrefix(key, "XDG_") || !strings.HasSuffix(key, "_DIR") {
			continue
		}
		value = strings.Trim(value, `"`)
		value = strings.Replace(value, "$HOME", home, 1)
		kind := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(key, "XDG_"), "_DIR"))
		out[kind] = filepath.Clean(value)
	}
	return out, sc.Err()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
