package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/friday/internal/config"
	"github.com/lmittmann/tint"
)

// levelOf maps a config level to slog. Unknown values fall back to info.
func levelOf(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the console handler selected by format and, when file is
// set, a text handler appending to it. Both share level so the config
// watcher can change verbosity at runtime. The returned closer releases the
// log file.
func newLogger(w io.Writer, format config.LogFormat, file string, level *slog.LevelVar) (*slog.Logger, func() error, error) {
	var console slog.Handler
	if format == config.FormatJSON {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		console = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly})
	}
	if file == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(slog.NewMultiHandler(console, fileHandler)), f.Close, nil
}
