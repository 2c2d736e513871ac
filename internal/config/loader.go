package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known backend names per kind.
// Used by [Validate] to warn about unrecognised backend names.
var ValidProviderNames = map[string][]string{
	"transcription": {"whisper-native", "whisper-server", "openai"},
	"speech":        {"elevenlabs", "espeak"},
	"sysops":        {"linux"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// against the environment, applies defaults and validates the result. An
// empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg in place.
func ApplyDefaults(cfg *Config) {
	setDefault(&cfg.Server.LogLevel, LogInfo)
	setDefault(&cfg.Logging.Format, FormatText)

	setDefault(&cfg.Wake.Phrase, "friday")
	if cfg.Wake.Aliases == nil {
		cfg.Wake.Aliases = []string{"hey friday", "okay friday"}
	}
	if cfg.Wake.Confusions == nil {
		cfg.Wake.Confusions = []string{"fry day", "fri day", "freddy", "fridey", "frieda", "fraiday"}
	}
	setDefault(&cfg.Wake.ShortMaxChars, 3)

	setDefault(&cfg.Session.Timeout, 30*time.Second)
	setDefault(&cfg.Session.MinCommandChars, 2)
	setDefault(&cfg.Session.Greeting, "Yes")

	setDefault(&cfg.Audio.SampleRate, 16000)
	setDefault(&cfg.Audio.Channels, 1)
	setDefault(&cfg.Audio.FrameMs, 20)
	setDefault(&cfg.Audio.QueueFrames, 256)
	setDefault(&cfg.Audio.ChunkMs, 500)
	setDefault(&cfg.Audio.DrainInterval, 250*time.Millisecond)
	setDefault(&cfg.Audio.SilenceRMS, 500)
	setDefault(&cfg.Audio.MaxUtterance, 10*time.Second)

	setDefault(&cfg.Cache.TTL, time.Hour)
	setDefault(&cfg.Cache.PersistInterval, 5*time.Minute)
	setDefault(&cfg.Cache.SimilarityCutoff, 0.6)

	setDefault(&cfg.Catalog.WalkMaxDepth, 3)

	setDefault(&cfg.SysOps.Name, "linux")

	setDefault(&cfg.Network.Timeout, 120*time.Second)
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server and logging
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.Server.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.listen_addr %q: %w", cfg.Server.ListenAddr, err))
		}
	}
	if cfg.Logging.Format != "" && !cfg.Logging.Format.IsValid() {
		errs = append(errs, fmt.Errorf("logging.format %q is invalid; valid values: text, json", cfg.Logging.Format))
	}

	// Wake
	if cfg.Wake.Phrase == "" {
		errs = append(errs, errors.New("wake.phrase is required"))
	}
	if cfg.Wake.PhoneticThreshold < 0 || cfg.Wake.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("wake.phonetic_threshold %.2f is out of range [0, 1]", cfg.Wake.PhoneticThreshold))
	}

	// Session
	if cfg.Session.Timeout < 0 {
		errs = append(errs, fmt.Errorf("session.timeout %s must be positive", cfg.Session.Timeout))
	}
	if cfg.Session.MinCommandChars < 0 {
		errs = append(errs, fmt.Errorf("session.min_command_chars %d must not be negative", cfg.Session.MinCommandChars))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 0 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is invalid; valid values: 1, 2", cfg.Audio.Channels))
	}
	if cfg.Audio.FrameMs < 0 || cfg.Audio.ChunkMs < 0 || cfg.Audio.QueueFrames < 0 {
		errs = append(errs, errors.New("audio.frame_ms, audio.chunk_ms and audio.queue_frames must not be negative"))
	}
	if cfg.Audio.SilenceRMS < 0 {
		errs = append(errs, fmt.Errorf("audio.silence_rms %.1f must not be negative", cfg.Audio.SilenceRMS))
	}

	// Cache
	if cfg.Cache.SimilarityCutoff < 0 || cfg.Cache.SimilarityCutoff > 1 {
		errs = append(errs, fmt.Errorf("cache.similarity_cutoff %.2f is out of range [0, 1]", cfg.Cache.SimilarityCutoff))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %s must be positive", cfg.Cache.TTL))
	}

	// Backends
	errs = append(errs, validateBackends("transcription", cfg.Transcription.Backends)...)
	errs = append(errs, validateBackends("speech", cfg.Speech.Backends)...)
	validateProviderName("sysops", cfg.SysOps.Name)
	if len(cfg.Transcription.Backends) == 0 {
		slog.Warn("config: no transcription backend configured; only text input will work")
	}
	if len(cfg.Speech.Backends) == 0 && !cfg.Speech.Echo {
		slog.Warn("config: no speech backend configured and speech.echo is off; replies will be silent")
	}

	// Usage
	if cfg.Usage.SQLitePath != "" && cfg.Usage.PostgresDSN != "" {
		errs = append(errs, errors.New("usage: set at most one of sqlite_path and postgres_dsn"))
	}

	// Network
	if cfg.Network.SOCKS5Proxy != "" {
		if _, _, err := net.SplitHostPort(cfg.Network.SOCKS5Proxy); err != nil {
			errs = append(errs, fmt.Errorf("network.socks5_proxy %q: %w", cfg.Network.SOCKS5Proxy, err))
		}
	}

	return errors.Join(errs...)
}

func validateBackends(kind string, entries []ProviderEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("%s.backends[%d]", kind, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of %s.backends[%d]", prefix, e.Name, kind, prev))
		}
		seen[e.Name] = i
		validateProviderName(kind, e.Name)
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("config: unknown backend name, may be a typo or an externally registered backend",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
