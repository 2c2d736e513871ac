package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/friday/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()

	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("expected no changes, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel: got %q, want %q", d.NewLogLevel, config.LogDebug)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level needs no restart, got %v", d.RestartRequired)
	}
}

func TestDiff_WakeConfusionsChanged(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()
	new.Wake.Confusions = append(slices.Clone(old.Wake.Confusions), "fried egg")

	d := config.Diff(old, new)
	if !d.WakeChanged {
		t.Error("expected WakeChanged=true")
	}
	if d.SessionChanged {
		t.Error("session did not change")
	}
}

func TestDiff_SessionTimeoutChanged(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()
	new.Session.Timeout = time.Minute

	d := config.Diff(old, new)
	if !d.SessionChanged {
		t.Error("expected SessionChanged=true")
	}
	if d.WakeChanged || d.LogLevelChanged || len(d.RestartRequired) != 0 {
		t.Errorf("unexpected changes: %+v", d)
	}
}

func TestDiff_GreetingNeedsRestart(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()
	new.Session.Greeting = "Listening"

	d := config.Diff(old, new)
	if d.SessionChanged {
		t.Error("greeting is not live session tuning")
	}
	if !slices.Equal(d.RestartRequired, []string{"session.greeting"}) {
		t.Errorf("RestartRequired: got %v", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old := config.Defaults()
	new := config.Defaults()
	new.Audio.SilenceRMS = 900
	new.Catalog.Folders = map[string]string{"music": "/srv/music"}
	new.Speech.Backends = []config.ProviderEntry{{Name: "espeak"}}
	new.Server.ListenAddr = "127.0.0.1:9000"

	d := config.Diff(old, new)
	want := []string{"server.listen_addr", "audio", "catalog", "speech"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired: got %v, want %v", d.RestartRequired, want)
	}
	if !d.Changed() {
		t.Error("Changed() should report true")
	}
}
