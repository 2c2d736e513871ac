package config

import (
	"time"

	"github.com/MrWong99/friday/internal/assistant"
	"github.com/MrWong99/friday/internal/netproxy"
	"github.com/MrWong99/friday/internal/resolve"
	"github.com/MrWong99/friday/internal/session"
	"github.com/MrWong99/friday/internal/wake"
	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/catalog/xdg"
)

// Detector returns the wake detector tables.
func (w WakeConfig) Detector() wake.Config {
	short := w.ShortMaxChars
	if short < 0 {
		short = 0
	}
	return wake.Config{
		Phrase:            w.Phrase,
		Aliases:           w.Aliases,
		Confusions:        w.Confusions,
		ShortMaxChars:     short,
		PhoneticThreshold: w.PhoneticThreshold,
	}
}

// Controller returns the session controller settings.
func (s SessionConfig) Controller() session.Config {
	return session.Config{Timeout: s.Timeout, MinCommandChars: s.MinCommandChars}
}

// Assistant returns the pipeline settings derived from the audio and
// session sections.
func (c *Config) Assistant() assistant.Config {
	bytesPerMs := c.Audio.SampleRate * c.Audio.Channels * 2 / 1000
	return assistant.Config{
		QueueFrames: c.Audio.QueueFrames,
		Chunker: audio.ChunkerConfig{
			MaxBytes: c.Audio.ChunkMs * bytesPerMs,
			Interval: c.Audio.DrainInterval,
		},
		SilenceRMS:   c.Audio.SilenceRMS,
		MaxUtterance: c.Audio.MaxUtterance,
		Greeting:     c.Session.Greeting,
		ReadyMessage: c.Session.ReadyMessage,
		PollInterval: time.Second,
	}
}

// FileSearch returns the file search bounds.
func (c CatalogConfig) FileSearch(cutoff float64) resolve.FileSearchConfig {
	return resolve.FileSearchConfig{
		Root:     c.SearchRoot,
		Priority: c.LocationPriority,
		Cutoff:   cutoff,
	}
}

// Walker returns the bounded walker settings.
func (c CatalogConfig) Walker() xdg.WalkerConfig {
	return xdg.WalkerConfig{
		Roots:    c.WalkRoots,
		AppRoots: c.AppRoots,
		MaxDepth: c.WalkMaxDepth,
	}
}

// CacheOptions returns the cache TTL and catalog seeds.
func (c *Config) CacheOptions() []resolve.CacheOption {
	return []resolve.CacheOption{
		resolve.WithTTL(c.Cache.TTL),
		resolve.WithSeeds(resolve.KindApplication, c.Catalog.Applications),
		resolve.WithSeeds(resolve.KindFolder, c.Catalog.Folders),
	}
}

// Proxy returns the egress settings for cloud backends.
func (n NetworkConfig) Proxy() netproxy.Config {
	return netproxy.Config{
		Address:  n.SOCKS5Proxy,
		Username: n.ProxyUsername,
		Password: n.ProxyPassword,
		Timeout:  n.Timeout,
	}
}
