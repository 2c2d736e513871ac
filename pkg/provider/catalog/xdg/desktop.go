package xdg

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopEntry holds the keys of a freedesktop .desktop file that matter for
// launching.
type desktopEntry struct {
	Name      string
	Exec      string
	Type      string
	NoDisplay bool
	Hidden    bool
}

// launchable reports whether the entry describes a visible application.
func (e desktopEntry) launchable() bool {
	return e.Name != "" && e.Type == "Application" && !e.NoDisplay && !e.Hidden
}

// parseDesktopFile reads the [Desktop Entry] group of path. Localised keys
// (Name[de]) and other groups are ignored.
func parseDesktopFile(path string) (desktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return desktopEntry{}, err
	}
	defer f.Close()

	var (
		e       desktopEntry
		inEntry bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Name":
			e.Name = value
		case "Exec":
			e.Exec = value
		case "Type":
			e.Type = value
		case "NoDisplay":
			e.NoDisplay = value == "true"
		case "Hidden":
			e.Hidden = value == "true"
		}
	}
	if err := sc.Err(); err != nil {
		return desktopEntry{}, fmt.Errorf("read %s: %w", path, err)
	}
	return e, nil
}

// addNames indexes path under the lowercase display name, the file stem and
// every distinctive (four letters or more) word of the display name. Full
// names always win over single words.
func addNames(out map[string]string, name, path string) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return
	}
	out[lower] = path
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if stem != "" {
		if _, exists := out[stem]; !exists {
			out[stem] = path
		}
	}
	for _, word := range strings.Fields(lower) {
		if len(word) < 4 {
			continue
		}
		if _, exists := out[word]; !exists {
			out[word] = path
		}
	}
}

// scanDesktopDir indexes every launchable .desktop file directly inside dir.
func scanDesktopDir(dir string, out map[string]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".desktop") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		e, err := parseDesktopFile(path)
		if err != nil || !e.launchable() {
			continue
		}
		addNames(out, e.Name, path)
	}
	return nil
}
