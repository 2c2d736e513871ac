package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/friday/internal/config"
)

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "friday.yaml")
	if err := os.WriteFile(path, []byte("session:\n  min_command_chars: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.MinCommandChars != 4 {
		t.Errorf("session.min_command_chars: got %d, want 4", cfg.Session.MinCommandChars)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "config: open") {
		t.Errorf("error should be an open error, got: %v", err)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "friday.example.yaml"))
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.Wake.Phrase != "friday" {
		t.Errorf("wake.phrase: got %q, want friday", cfg.Wake.Phrase)
	}
	if len(cfg.Wake.Confusions) == 0 {
		t.Error("example config should ship a confusion table")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{"transcription", "speech", "sysops"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("no known names for %q", kind)
		}
	}
	if !slices.Contains(config.ValidProviderNames["speech"], "elevenlabs") {
		t.Error("elevenlabs should be a known speech backend")
	}
}

func TestValidate_UnknownBackendIsOnlyAWarning(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("speech:\n  backends:\n    - name: festival\n"))
	if err != nil {
		t.Errorf("unknown backend names should not fail validation: %v", err)
	}
}
