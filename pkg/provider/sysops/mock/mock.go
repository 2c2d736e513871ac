// Package mock provides an in-memory [sysops.Operations] for unit tests.
//
// The mock keeps a volume and brightness level, records every call and can
// be told to fail individual operations by method name:
//
//	ops := &mock.Operations{Volume: 30}
//	ops.Fail("SetVolume")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/friday/pkg/provider/sysops"
)

// Call is one recorded invocation.
type Call struct {
	Method string
	Arg    any
}

// Operations is a mock implementation of [sysops.Operations].
type Operations struct {
	mu sync.Mutex

	// Volume and Brightness are the current levels.
	Volume     int
	Brightness int

	// ScreenshotPath is returned by TakeScreenshot.
	ScreenshotPath string

	// Info is returned by SystemInfo.
	Info sysops.Info

	// Calls records every invocation in order.
	Calls []Call

	failing map[string]bool
}

var _ sysops.Operations = (*Operations)(nil)

// Fail makes the named methods report failure.
func (m *Operations) Fail(methods ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing == nil {
		m.failing = make(map[string]bool)
	}
	for _, name := range methods {
		m.failing[name] = true
	}
}

// CallCount returns how often method was called.
func (m *Operations) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Methods returns the method names called, in order.
func (m *Operations) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Method
	}
	return out
}

// Reset clears recorded calls and failures.
func (m *Operations) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.failing = nil
}

// record notes the call and reports whether it should succeed. The caller
// must hold m.mu.
func (m *Operations) record(method string, arg any) bool {
	m.Calls = append(m.Calls, Call{Method: method, Arg: arg})
	return !m.failing[method]
}

// OpenResource implements [sysops.Operations].
func (m *Operations) OpenResource(_ context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("OpenResource", path)
}

// SetVolume implements [sysops.Operations].
func (m *Operations) SetVolume(_ context.Context, level int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("SetVolume", level) {
		return false
	}
	m.Volume = sysops.Clamp(level)
	return true
}

// GetVolume implements [sysops.Operations].
func (m *Operations) GetVolume(context.Context) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("GetVolume", nil) {
		return 0, false
	}
	return m.Volume, true
}

// AdjustVolumeRelative implements [sysops.Operations].
func (m *Operations) AdjustVolumeRelative(_ context.Context, delta int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("AdjustVolumeRelative", delta) {
		return 0, false
	}
	m.Volume = sysops.Clamp(m.Volume + delta)
	return m.Volume, true
}

// SetBrightness implements [sysops.Operations].
func (m *Operations) SetBrightness(_ context.Context, level int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("SetBrightness", level) {
		return false
	}
	m.Brightness = sysops.Clamp(level)
	return true
}

// AdjustBrightnessRelative implements [sysops.Operations].
func (m *Operations) AdjustBrightnessRelative(_ context.Context, delta int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("AdjustBrightnessRelative", delta) {
		return 0, false
	}
	m.Brightness = sysops.Clamp(m.Brightness + delta)
	return m.Brightness, true
}

// TakeScreenshot implements [sysops.Operations].
func (m *Operations) TakeScreenshot(context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("TakeScreenshot", nil) {
		return "", false
	}
	return m.ScreenshotPath, true
}

// Shutdown implements [sysops.Operations].
func (m *Operations) Shutdown(_ context.Context, delay time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("Shutdown", delay)
}

// Restart implements [sysops.Operations].
func (m *Operations) Restart(_ context.Context, delay time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("Restart", delay)
}

// Sleep implements [sysops.Operations].
func (m *Operations) Sleep(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("Sleep", nil)
}

// WebSearch implements [sysops.Operations].
func (m *Operations) WebSearch(_ context.Context, query string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("WebSearch", query)
}

// SystemInfo implements [sysops.Operations].
func (m *Operations) SystemInfo(context.Context) (sysops.Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.record("SystemInfo", nil) {
		return sysops.Info{}, false
	}
	return m.Info, true
}
