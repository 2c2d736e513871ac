// Package sysops defines the system-operations port: the side effects the
// assistant can request from the operating system.
//
// Operations never return errors across the port. Each call reports success
// as a bool (or a value and a bool); implementations log the underlying
// failure themselves.
package sysops

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Operations is the system-operations port. Implementations must be safe for
// concurrent use.
type Operations interface {
	// OpenResource opens an application, folder, file or URL.
	OpenResource(ctx context.Context, path string) bool

	// SetVolume sets the output volume to level percent (0-100).
	SetVolume(ctx context.Context, level int) bool
	GetVolume(ctx context.Context) (int, bool)

	// AdjustVolumeRelative changes the volume by delta percentage points and
	// returns the resulting level, clamped to 0-100.
	AdjustVolumeRelative(ctx context.Context, delta int) (int, bool)

	SetBrightness(ctx context.Context, level int) bool
	AdjustBrightnessRelative(ctx context.Context, delta int) (int, bool)

	// TakeScreenshot saves a screenshot and returns its path.
	TakeScreenshot(ctx context.Context) (string, bool)

	// Shutdown and Restart power the machine off or reboot it after delay.
	Shutdown(ctx context.Context, delay time.Duration) bool
	Restart(ctx context.Context, delay time.Duration) bool
	Sleep(ctx context.Context) bool

	// WebSearch opens the default browser on a search for query.
	WebSearch(ctx context.Context, query string) bool

	SystemInfo(ctx context.Context) (Info, bool)
}

// Info is a point-in-time summary of the machine.
type Info struct {
	Hostname string
	OS       string
	Uptime   time.Duration

	// MemoryUsedPercent is the share of physical memory in use.
	MemoryUsedPercent int

	// CPUCount is the number of logical CPUs.
	CPUCount int

	// Load1 is the one-minute load average.
	Load1 float64

	HasBattery     bool
	BatteryPercent int
	Charging       bool
}

// Summary renders info as a sentence suitable for speech.
func (i Info) Summary() string {
	var parts []string
	host := i.Hostname
	if host == "" {
		host = "this computer"
	}
	if i.OS != "" {
		parts = append(parts, fmt.Sprintf("%s is running %s", host, i.OS))
	} else {
		parts = append(parts, fmt.Sprintf("%s is running", host))
	}
	if i.Uptime > 0 {
		parts = append(parts, "up for "+spokenDuration(i.Uptime))
	}
	if i.MemoryUsedPercent > 0 {
		parts = append(parts, fmt.Sprintf("memory is %d percent used", i.MemoryUsedPercent))
	}
	if i.HasBattery {
		b := fmt.Sprintf("battery is at %d percent", i.BatteryPercent)
		if i.Charging {
			b += " and charging"
		}
		parts = append(parts, b)
	}
	s := strings.Join(parts, ", ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func spokenDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	var parts []string
	add := func(n int, unit string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+unit)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
		}
	}
	add(days, "day")
	add(hours, "hour")
	add(minutes, "minute")
	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, " ")
}

// Clamp limits a percentage to 0-100.
func Clamp(level int) int {
	return max(0, min(100, level))
}
