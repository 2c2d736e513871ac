// Package linux implements [sysops.Operations] for desktop Linux using
// common command-line tools: pactl for volume, brightnessctl for the
// backlight, xdg-open and gio for opening resources, grim or
// gnome-screenshot for screenshots and systemctl for power management.
package linux

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/friday/pkg/provider/sysops"
)

const defaultSearchURL = "https://www.google.com/search?q="

// Option configures [Operations].
type Option func(*Operations)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(o *Operations) { o.run = r }
}

// WithScreenshotDir sets where screenshots are written. Defaults to
// ~/Pictures/Screenshots.
func WithScreenshotDir(dir string) Option {
	return func(o *Operations) { o.screenshotDir = dir }
}

// WithSearchURL sets the search URL prefix the query is appended to.
func WithSearchURL(prefix string) Option {
	return func(o *Operations) { o.searchURL = prefix }
}

// WithDryRun logs power operations (shutdown, restart, sleep) instead of
// executing them.
func WithDryRun(dry bool) Option {
	return func(o *Operations) { o.dryRun = dry }
}

// WithProcRoot overrides /proc and /sys for [Operations.SystemInfo].
func WithProcRoot(proc, sys string) Option {
	return func(o *Operations) { o.procRoot, o.sysRoot = proc, sys }
}

// WithClock replaces time.Now for screenshot file names.
func WithClock(now func() time.Time) Option {
	return func(o *Operations) { o.now = now }
}

// Operations implements [sysops.Operations].
type Operations struct {
	run           Runner
	screenshotDir string
	searchURL     string
	dryRun        bool
	procRoot      string
	sysRoot       string
	now           func() time.Time
}

var _ sysops.Operations = (*Operations)(nil)

// New returns Operations using the real command runner.
func New(opts ...Option) *Operations {
	o := &Operations{
		run:       ExecRunner{},
		searchURL: defaultSearchURL,
		procRoot:  "/proc",
		sysRoot:   "/sys",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.screenshotDir == "" {
		home, _ := os.UserHomeDir()
		o.screenshotDir = filepath.Join(home, "Pictures", "Screenshots")
	}
	return o
}

func (o *Operations) fail(op string, err error, args ...any) {
	slog.Warn("linux: "+op+" failed", append([]any{"err", err}, args...)...)
}

// OpenResource implements [sysops.Operations]. Desktop entries are launched
// with gio, executables are started directly and everything else goes
// through xdg-open.
func (o *Operations) OpenResource(ctx context.Context, path string) bool {
	var err error
	switch {
	case strings.HasSuffix(path, ".desktop"):
		err = o.run.Start("gio", "launch", path)
	case isExecutable(path):
		err = o.run.Start(path)
	default:
		err = o.run.Start("xdg-open", path)
	}
	if err != nil {
		o.fail("open", err, "path", path)
		return false
	}
	return true
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0
}

var percentRe = regexp.MustCompile(`(\d+)%`)

// SetVolume implements [sysops.Operations]. Setting a level above zero also
// unmutes the sink.
func (o *Operations) SetVolume(ctx context.Context, level int) bool {
	level = sysops.Clamp(level)
	if _, err := o.run.Run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level)); err != nil {
		o.fail("set volume", err, "level", level)
		return false
	}
	mute := "0"
	if level == 0 {
		mute = "1"
	}
	if _, err := o.run.Run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", mute); err != nil {
		o.fail("set mute", err)
	}
	return true
}

// GetVolume implements [sysops.Operations]. The first channel is reported.
func (o *Operations) GetVolume(ctx context.Context) (int, bool) {
	out, err := o.run.Run(ctx, "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		o.fail("get volume", err)
		return 0, false
	}
	m := percentRe.FindSubmatch(out)
	if m == nil {
		o.fail("get volume", fmt.Errorf("unexpected pactl output %q", out))
		return 0, false
	}
	n, _ := strconv.Atoi(string(m[1]))
	return n, true
}

// AdjustVolumeRelative implements [sysops.Operations].
func (o *Operations) AdjustVolumeRelative(ctx context.Context, delta int) (int, bool) {
	cur, ok := o.GetVolume(ctx)
	if !ok {
		return 0, false
	}
	next := sysops.Clamp(cur + delta)
	if !o.SetVolume(ctx, next) {
		return 0, false
	}
	return next, true
}

// SetBrightness implements [sysops.Operations].
func (o *Operations) SetBrightness(ctx context.Context, level int) bool {
	level = sysops.Clamp(level)
	if _, err := o.run.Run(ctx, "brightnessctl", "--quiet", "set", fmt.Sprintf("%d%%", level)); err != nil {
		o.fail("set brightness", err, "level", level)
		return false
	}
	return true
}

// AdjustBrightnessRelative implements [sysops.Operations]. The current level
// is read from brightnessctl's machine-readable output
// ("intel_backlight,backlight,400,40%,1000").
func (o *Operations) AdjustBrightnessRelative(ctx context.Context, delta int) (int, bool) {
	out, err := o.run.Run(ctx, "brightnessctl", "--machine-readable", "info")
	if err != nil {
		o.fail("get brightness", err)
		return 0, false
	}
	m := percentRe.FindSubmatch(out)
	if m == nil {
		o.fail("get brightness", fmt.Errorf("unexpected brightnessctl output %q", out))
		return 0, false
	}
	cur, _ := strconv.Atoi(string(m[1]))
	next := sysops.Clamp(cur + delta)
	if !o.SetBrightness(ctx, next) {
		return 0, false
	}
	return next, true
}

// screenshotTools are tried in order until one succeeds.
var screenshotTools = []struct {
	name string
	args func(path string) []string
}{
	{"grim", func(p string) []string { return []string{p} }},
	{"gnome-screenshot", func(p string) []string { return []string{"-f", p} }},
	{"import", func(p string) []string { return []string{"-window", "root", p} }},
}

// TakeScreenshot implements [sysops.Operations].
func (o *Operations) TakeScreenshot(ctx context.Context) (string, bool) {
	if err := os.MkdirAll(o.screenshotDir, 0o755); err != nil {
		o.fail("screenshot", err, "dir", o.screenshotDir)
		return "", false
	}
	path := filepath.Join(o.screenshotDir, "screenshot_"+o.now().Format("20060102_150405")+".png")
	var lastErr error
	for _, tool := range screenshotTools {
		if _, err := o.run.Run(ctx, tool.name, tool.args(path)...); err != nil {
			lastErr = err
			continue
		}
		return path, true
	}
	o.fail("screenshot", lastErr)
	return "", false
}

// Shutdown implements [sysops.Operations].
func (o *Operations) Shutdown(ctx context.Context, delay time.Duration) bool {
	return o.power(ctx, "shutdown", delay, "-h", "poweroff")
}

// Restart implements [sysops.Operations].
func (o *Operations) Restart(ctx context.Context, delay time.Duration) bool {
	return o.power(ctx, "restart", delay, "-r", "reboot")
}

// power runs "systemctl <verb>" immediately, or "shutdown <flag> +M" with
// the delay rounded up to whole minutes.
func (o *Operations) power(ctx context.Context, op string, delay time.Duration, flag, verb string) bool {
	name, args := "systemctl", []string{verb}
	if delay > 0 {
		minutes := int((delay + time.Minute - 1) / time.Minute)
		name, args = "shutdown", []string{flag, fmt.Sprintf("+%d", minutes)}
	}
	if o.dryRun {
		slog.Info("linux: dry run", "op", op, "cmd", name, "args", args)
		return true
	}
	if _, err := o.run.Run(ctx, name, args...); err != nil {
		o.fail(op, err)
		return false
	}
	return true
}

// Sleep implements [sysops.Operations].
func (o *Operations) Sleep(ctx context.Context) bool {
	if o.dryRun {
		slog.Info("linux: dry run", "op", "sleep")
		return true
	}
	if _, err := o.run.Run(ctx, "systemctl", "suspend"); err != nil {
		o.fail("sleep", err)
		return false
	}
	return true
}

// WebSearch implements [sysops.Operations].
func (o *Operations) WebSearch(ctx context.Context, query string) bool {
	target := o.searchURL + url.QueryEscape(query)
	if err := o.run.Start("xdg-open", target); err != nil {
		o.fail("web search", err, "query", query)
		return false
	}
	return true
}
