// Package config provides the configuration schema, loader, watcher, and
// backend registry for the Friday voice assistant.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LogFormat selects the console log handler.
type LogFormat string

const (
	// FormatText is the colourised console handler.
	FormatText LogFormat = "text"

	// FormatJSON writes one JSON object per record.
	FormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == FormatText || f == FormatJSON
}

// Config is the root configuration structure for Friday.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Wake          WakeConfig          `yaml:"wake"`
	Session       SessionConfig       `yaml:"session"`
	Audio         AudioConfig         `yaml:"audio"`
	Cache         CacheConfig         `yaml:"cache"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Speech        SpeechConfig        `yaml:"speech"`
	SysOps        SysOpsConfig        `yaml:"sysops"`
	Usage         UsageConfig         `yaml:"usage"`
	Network       NetworkConfig       `yaml:"network"`
}

// ServerConfig holds the admin API and log level settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the admin API. Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// File additionally receives text logs when set.
	File string `yaml:"file"`

	Format LogFormat `yaml:"format"`
}

// WakeConfig holds the wake tables. Hot-reloadable.
type WakeConfig struct {
	Phrase     string   `yaml:"phrase"`
	Aliases    []string `yaml:"aliases"`
	Confusions []string `yaml:"confusions"`

	// ShortMaxChars bounds the short-fragment heuristic. Negative disables
	// the layer; zero selects the default.
	ShortMaxChars int `yaml:"short_max_chars"`

	// PhoneticThreshold enables the phonetic layer when positive.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}

// SessionConfig tunes the session controller. Hot-reloadable.
type SessionConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MinCommandChars int           `yaml:"min_command_chars"`

	// Greeting is spoken when a session opens.
	Greeting string `yaml:"greeting"`

	// ReadyMessage is spoken once at startup. Empty stays silent.
	ReadyMessage string `yaml:"ready_message"`
}

// AudioConfig controls microphone capture and utterance segmentation.
type AudioConfig struct {
	// Device selects an input device by name substring. Empty uses the
	// system default.
	Device        string        `yaml:"device"`
	SampleRate    int           `yaml:"sample_rate"`
	Channels      int           `yaml:"channels"`
	FrameMs       int           `yaml:"frame_ms"`
	QueueFrames   int           `yaml:"queue_frames"`
	ChunkMs       int           `yaml:"chunk_ms"`
	DrainInterval time.Duration `yaml:"drain_interval"`
	SilenceRMS    float64       `yaml:"silence_rms"`
	MaxUtterance  time.Duration `yaml:"max_utterance"`
}

// CacheConfig controls the resource cache.
type CacheConfig struct {
	// Path is the JSON cache file. Empty keeps the cache in memory only.
	Path             string        `yaml:"path"`
	TTL              time.Duration `yaml:"ttl"`
	PersistInterval  time.Duration `yaml:"persist_interval"`
	SimilarityCutoff float64       `yaml:"similarity_cutoff"`
}

// CatalogConfig configures where applications, folders and files are
// discovered.
type CatalogConfig struct {
	// Applications and Folders are seed entries that survive every
	// refresh, keyed by spoken name.
	Applications map[string]string `yaml:"applications"`
	Folders      map[string]string `yaml:"folders"`

	// SearchRoot is where file search starts. Defaults to the home
	// directory.
	SearchRoot string `yaml:"search_root"`

	// LocationPriority ranks top-level directories below SearchRoot.
	LocationPriority map[string]int `yaml:"location_priority"`

	WalkRoots    []string `yaml:"walk_roots"`
	AppRoots     []string `yaml:"app_roots"`
	WalkMaxDepth int      `yaml:"walk_max_depth"`

	// ShortcutDirs are scanned for .desktop launchers. Defaults to the
	// XDG desktop and applications directories.
	ShortcutDirs []string `yaml:"shortcut_dirs"`
}

// TranscriptionConfig lists transcription backends in fallback order.
type TranscriptionConfig struct {
	Backends      []ProviderEntry `yaml:"backends"`
	FastModel     string          `yaml:"fast_model"`
	AccurateModel string          `yaml:"accurate_model"`
	Language      string          `yaml:"language"`
}

// SpeechConfig lists speech backends in fallback order.
type SpeechConfig struct {
	Backends []ProviderEntry `yaml:"backends"`

	// Echo prints every reply to stdout in addition to voicing it.
	Echo bool `yaml:"echo"`

	// Mute suppresses voicing. Replies are still echoed when Echo is set.
	Mute bool `yaml:"mute"`
}

// SysOpsConfig configures the system-operations backend.
type SysOpsConfig struct {
	// Name selects the registered backend. Defaults to "linux".
	Name string `yaml:"name"`

	// DryRun logs commands instead of executing them.
	DryRun        bool   `yaml:"dry_run"`
	ScreenshotDir string `yaml:"screenshot_dir"`
	SearchURL     string `yaml:"search_url"`
}

// UsageConfig selects the usage-history store. At most one may be set; with
// neither, history is kept in memory.
type UsageConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// NetworkConfig controls outbound connections of cloud backends.
type NetworkConfig struct {
	// SOCKS5Proxy is a host:port address. Empty connects directly.
	SOCKS5Proxy   string        `yaml:"socks5_proxy"`
	ProxyUsername string        `yaml:"proxy_username"`
	ProxyPassword string        `yaml:"proxy_password"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ProviderEntry is the common configuration block shared by all backend
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered backend (e.g., "whisper-native", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for cloud backends. Use ${VAR}
	// references to keep secrets out of the file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the backend.
	Model string `yaml:"model"`

	// Voice selects a voice for speech backends.
	Voice string `yaml:"voice"`

	// Options holds backend-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// Option returns the named option as a string, or def when unset.
func (e ProviderEntry) Option(key, def string) string {
	if v, ok := e.Options[key].(string); ok && v != "" {
		return v
	}
	return def
}

// FloatOption returns the named numeric option, or def when unset.
func (e ProviderEntry) FloatOption(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
