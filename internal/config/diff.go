package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs. Wake tables,
// session tuning and the log level are applied live; every other changed
// section is listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	WakeChanged    bool
	SessionChanged bool

	// RestartRequired names changed sections that only take effect after
	// a restart, in schema order.
	RestartRequired []string
}

// Changed reports whether anything differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.WakeChanged || d.SessionChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.WakeChanged = !wakeEqual(old.Wake, new.Wake)
	d.SessionChanged = old.Session.Timeout != new.Session.Timeout ||
		old.Session.MinCommandChars != new.Session.MinCommandChars

	restart := []struct {
		name    string
		changed bool
	}{
		{"server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr},
		{"logging", old.Logging != new.Logging},
		{"session.greeting", old.Session.Greeting != new.Session.Greeting ||
			old.Session.ReadyMessage != new.Session.ReadyMessage},
		{"audio", old.Audio != new.Audio},
		{"cache", old.Cache != new.Cache},
		{"catalog", !reflect.DeepEqual(old.Catalog, new.Catalog)},
		{"transcription", !reflect.DeepEqual(old.Transcription, new.Transcription)},
		{"speech", !reflect.DeepEqual(old.Speech, new.Speech)},
		{"sysops", old.SysOps != new.SysOps},
		{"usage", old.Usage != new.Usage},
		{"network", old.Network != new.Network},
	}
	for _, r := range restart {
		if r.changed {
			d.RestartRequired = append(d.RestartRequired, r.name)
		}
	}
	return d
}

func wakeEqual(a, b WakeConfig) bool {
	return a.Phrase == b.Phrase &&
		a.ShortMaxChars == b.ShortMaxChars &&
		a.PhoneticThreshold == b.PhoneticThreshold &&
		slices.Equal(a.Aliases, b.Aliases) &&
		slices.Equal(a.Confusions, b.Confusions)
}
