package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/friday/internal/config"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/resilience"
	"github.com/MrWong99/friday/pkg/provider/speech"
	"github.com/MrWong99/friday/pkg/provider/speech/elevenlabs"
	"github.com/MrWong99/friday/pkg/provider/speech/espeak"
	"github.com/MrWong99/friday/pkg/provider/sysops"
	"github.com/MrWong99/friday/pkg/provider/sysops/linux"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	oatranscribe "github.com/MrWong99/friday/pkg/provider/transcribe/openai"
	"github.com/MrWong99/friday/pkg/provider/transcribe/whisper"
)

// backends carries what the factories share: the proxied HTTP client for
// cloud backends, the audio player, and closers for backends holding native
// resources.
type backends struct {
	cfg     *config.Config
	client  *http.Client
	player  speech.Player
	closers []io.Closer
}

func (b *backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// registerBuiltinProviders wires every built-in backend into reg.
func (b *backends) registerBuiltinProviders(reg *config.Registry) {
	tc := b.cfg.Transcription

	reg.RegisterTranscriber("whisper-native", func(e config.ProviderEntry) (transcribe.Transcriber, error) {
		fast := expandHome(firstNonEmpty(e.Model, tc.FastModel))
		accurate := expandHome(firstNonEmpty(e.Option("accurate_model", ""), tc.AccurateModel))
		n, err := whisper.NewNative(fast, accurate, whisper.WithLanguage(tc.Language))
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, n)
		return n, nil
	})
	reg.RegisterTranscriber("whisper-server", func(e config.ProviderEntry) (transcribe.Transcriber, error) {
		return whisper.NewServer(e.BaseURL,
			whisper.WithServerLanguage(tc.Language),
			whisper.WithAccurateURL(e.Option("accurate_url", "")),
			whisper.WithHTTPClient(b.client),
		)
	})
	reg.RegisterTranscriber("openai", func(e config.ProviderEntry) (transcribe.Transcriber, error) {
		opts := []oatranscribe.Option{
			oatranscribe.WithModels(e.Model, e.Option("accurate_model", "")),
			oatranscribe.WithLanguage(tc.Language),
			oatranscribe.WithPrompt(e.Option("prompt", "")),
			oatranscribe.WithHTTPClient(b.client),
		}
		if e.BaseURL != "" {
			opts = append(opts, oatranscribe.WithBaseURL(e.BaseURL))
		}
		return oatranscribe.New(e.APIKey, opts...)
	})

	reg.RegisterSpeaker("elevenlabs", func(e config.ProviderEntry) (speech.Speaker, error) {
		opts := []elevenlabs.Option{
			elevenlabs.WithModel(e.Model),
			elevenlabs.WithVoiceSettings(e.FloatOption("stability", 0.6), e.FloatOption("similarity_boost", 0.8)),
			elevenlabs.WithHTTPClient(b.client),
		}
		if e.BaseURL != "" {
			opts = append(opts, elevenlabs.WithEndpoint(e.BaseURL))
		}
		return elevenlabs.New(e.APIKey, e.Voice, b.player, opts...)
	})
	reg.RegisterSpeaker("espeak", func(e config.ProviderEntry) (speech.Speaker, error) {
		return espeak.New(
			espeak.WithBinary(e.Option("binary", "")),
			espeak.WithVoice(e.Voice),
			espeak.WithRate(int(e.FloatOption("rate", 0))),
		), nil
	})

	reg.RegisterSysOps("linux", func(c config.SysOpsConfig) (sysops.Operations, error) {
		opts := []linux.Option{linux.WithDryRun(c.DryRun)}
		if c.ScreenshotDir != "" {
			opts = append(opts, linux.WithScreenshotDir(expandHome(c.ScreenshotDir)))
		}
		if c.SearchURL != "" {
			opts = append(opts, linux.WithSearchURL(c.SearchURL))
		}
		return linux.New(opts...), nil
	})
}

// breakerConfig reports breaker transitions as provider errors.
func breakerConfig(m *observe.Metrics, kind string) resilience.FallbackConfig {
	return resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Minute,
		OnStateChange: func(name string, from, to resilience.State) {
			slog.Warn("resilience: backend state changed", "kind", kind, "backend", name, "from", from, "to", to)
			if to == resilience.StateOpen {
				m.RecordProviderError(context.Background(), name, kind)
			}
		},
	}}
}

// buildTranscriber creates every configured transcription backend, in order,
// behind a fallback group. Backends that fail to build are skipped. It
// returns nil when none could be built.
func buildTranscriber(cfg *config.Config, reg *config.Registry, m *observe.Metrics) transcribe.Transcriber {
	var fb *resilience.TranscriberFallback
	for _, e := range cfg.Transcription.Backends {
		t, err := reg.CreateTranscriber(e)
		if err != nil {
			slog.Warn("transcription backend unavailable", "backend", e.Name, "err", err)
			continue
		}
		if fb == nil {
			fb = resilience.NewTranscriberFallback(t, e.Name, breakerConfig(m, "transcription"))
		} else {
			fb.AddFallback(e.Name, t)
		}
		slog.Info("transcription backend ready", "backend", e.Name)
	}
	if fb == nil {
		return nil
	}
	return fb
}

// buildSpeaker does the same for speech backends. With none available it
// returns nil and replies are only echoed.
func buildSpeaker(cfg *config.Config, reg *config.Registry, m *observe.Metrics) speech.Speaker {
	var fb *resilience.SpeakerFallback
	for _, e := range cfg.Speech.Backends {
		s, err := reg.CreateSpeaker(e)
		if err != nil {
			slog.Warn("speech backend unavailable", "backend", e.Name, "err", err)
			continue
		}
		if fb == nil {
			fb = resilience.NewSpeakerFallback(s, e.Name, breakerConfig(m, "speech"))
		} else {
			fb.AddFallback(e.Name, s)
		}
		slog.Info("speech backend ready", "backend", e.Name)
	}
	if fb == nil {
		return nil
	}
	return fb
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

func describe(entries []config.ProviderEntry) string {
	if len(entries) == 0 {
		return "(none)"
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return strings.Join(names, " → ")
}
