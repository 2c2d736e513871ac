// Command friday is a spoken-command front-end for the desktop: it listens
// for the wake phrase, transcribes commands, and opens applications, folders
// and files, adjusts volume and brightness, or answers simple questions.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MrWong99/friday/internal/api"
	"github.com/MrWong99/friday/internal/assistant"
	"github.com/MrWong99/friday/internal/config"
	"github.com/MrWong99/friday/internal/dispatch"
	"github.com/MrWong99/friday/internal/health"
	"github.com/MrWong99/friday/internal/intent"
	"github.com/MrWong99/friday/internal/netproxy"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/resolve"
	"github.com/MrWong99/friday/internal/session"
	"github.com/MrWong99/friday/internal/usage"
	"github.com/MrWong99/friday/internal/wake"
	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/audio/portaudio"
	"github.com/MrWong99/friday/pkg/provider/catalog/xdg"
	"github.com/MrWong99/friday/pkg/provider/speech"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := pflag.StringP("config", "c", "friday.yaml", "path to the YAML configuration file")
	envFile := pflag.StringP("env", "e", ".env", "env file with API keys (optional)")
	logLevel := pflag.StringP("log-level", "l", "", "override server.log_level (debug, info, warn, error)")
	logFormat := pflag.String("log-format", "", "override logging.format (text, json)")
	textMode := pflag.Bool("text", false, "type commands on stdin instead of using the microphone")
	pflag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	if err := godotenv.Load(*envFile); err != nil && (pflag.CommandLine.Changed("env") || !errors.Is(err, os.ErrNotExist)) {
		fmt.Fprintf(os.Stderr, "friday: load env %q: %v\n", *envFile, err)
		return 1
	}

	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, fromFile, err := loadConfig(*configPath, pflag.CommandLine.Changed("config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "friday: %v\n", err)
		return 1
	}
	if err := applyOverrides(cfg, *logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "friday: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(levelOf(cfg.Server.LogLevel))
	logger, closeLog, err := newLogger(os.Stderr, cfg.Logging.Format, expandHome(cfg.Logging.File), &level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "friday: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("friday starting",
		"version", version,
		"config", *configPath,
		"config_file", fromFile,
		"text_mode", *textMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Backends ──────────────────────────────────────────────────────────────
	client, err := netproxy.NewClient(cfg.Network.Proxy())
	if err != nil {
		slog.Error("failed to configure network proxy", "err", err)
		return 1
	}
	b := &backends{cfg: cfg, client: client, player: portaudio.NewPlayer()}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Warn("backend close error", "err", err)
		}
	}()
	reg := config.NewRegistry()
	b.registerBuiltinProviders(reg)

	ops, err := reg.CreateSysOps(cfg.SysOps)
	if err != nil {
		slog.Error("failed to create system operations backend", "err", err)
		return 1
	}

	components := assistant.Components{}
	if !*textMode {
		components.Transcriber = buildTranscriber(cfg, reg, metrics)
		if components.Transcriber == nil {
			slog.Error("no transcription backend available; configure transcription.backends or use --text")
			return 1
		}
		components.Source = portaudio.New(
			portaudio.WithSampleRate(cfg.Audio.SampleRate),
			portaudio.WithFrameMs(cfg.Audio.FrameMs),
			portaudio.WithDevice(cfg.Audio.Device),
		)
	}
	outOpts := []speech.OutputOption{speech.WithMute(cfg.Speech.Mute)}
	if cfg.Speech.Echo || *textMode {
		outOpts = append(outOpts, speech.WithEcho(os.Stdout))
	}
	components.Speech = speech.NewOutput(buildSpeaker(cfg, reg, metrics), outOpts...)

	// ── Resource cache and resolver ───────────────────────────────────────────
	cache := resolve.NewCache(cfg.CacheOptions()...)
	cachePath := expandHome(cfg.Cache.Path)
	if cachePath != "" {
		if err := cache.Load(cachePath); err != nil {
			slog.Warn("resource cache unreadable, starting empty", "err", err)
		}
	}
	resolver := newResolver(cfg, cache)

	// ── Usage history ─────────────────────────────────────────────────────────
	store, err := openUsageStore(ctx, cfg.Usage)
	if err != nil {
		slog.Warn("usage store unavailable, keeping history in memory", "err", err)
		store = usage.NewMemoryStore()
	}
	history := usage.NewGuard(store)
	defer history.Close()

	// ── Pipeline ──────────────────────────────────────────────────────────────
	detector := wake.New(cfg.Wake.Detector())
	sessions := session.NewController(cfg.Session.Controller())
	components.Wake = detector
	components.Session = sessions
	components.Parser = intent.NewParser()
	components.Dispatcher = dispatch.New(ops, resolver,
		dispatch.WithRecorder(history),
		dispatch.WithMetrics(metrics),
	)
	a, err := assistant.New(components, cfg.Assistant(), assistant.WithMetrics(metrics))
	if err != nil {
		slog.Error("failed to initialise assistant", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	var watcher *config.Watcher
	if fromFile {
		watcher, err = config.NewWatcher(*configPath, func(old, new *config.Config) {
			applyReload(old, new, &level, detector, sessions)
		})
		if err != nil {
			slog.Error("failed to watch config", "err", err)
			return 1
		}
	}

	printStartupSummary(cfg, *textMode)

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := resolver.Refresh(gctx); err != nil && gctx.Err() == nil {
			slog.Warn("initial resource scan failed", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		cache.RunPersist(gctx, cachePath, cfg.Cache.PersistInterval)
		return nil
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if cfg.Server.ListenAddr != "" {
		srv, err := api.New(api.Deps{
			Assistant: a,
			Session:   sessions,
			Cache:     cache,
			Usage:     history,
			Health:    health.New(
				health.Flag("audio", a.Running, "assistant loop not running"),
				health.Checker{Name: "cache", Optional: true, Check: cacheLoaded(cache)},
				health.Ping("usage", history, true),
			),
		}, api.WithMetrics(metrics))
		if err != nil {
			slog.Error("failed to build admin API", "err", err)
			return 1
		}
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Server.ListenAddr) })
	}
	g.Go(func() error {
		var err error
		if *textMode {
			err = a.RunText(gctx, os.Stdin)
		} else {
			err = a.Run(gctx)
		}
		// The loop ending, for whatever reason, ends the process.
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	slog.Info("friday ready, press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		if errors.Is(err, audio.ErrDeviceUnavailable) {
			slog.Error("microphone unavailable", "err", err)
		} else {
			slog.Error("run error", "err", err)
		}
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// loadConfig reads path. A missing file at the default path yields the
// built-in defaults; fromFile reports whether a file was read.
func loadConfig(path string, explicit bool) (cfg *config.Config, fromFile bool, err error) {
	cfg, err = config.Load(path)
	switch {
	case err == nil:
		return cfg, true, nil
	case errors.Is(err, os.ErrNotExist) && !explicit:
		fmt.Fprintf(os.Stderr, "friday: %s not found, using built-in defaults (see configs/friday.example.yaml)\n", path)
		return config.Defaults(), false, nil
	default:
		return nil, false, err
	}
}

func applyOverrides(cfg *config.Config, level, format string) error {
	if level != "" {
		cfg.Server.LogLevel = config.LogLevel(level)
	}
	if format != "" {
		cfg.Logging.Format = config.LogFormat(format)
	}
	return config.Validate(cfg)
}

// applyReload applies the hot-reloadable parts of a changed config.
func applyReload(old, new *config.Config, level *slog.LevelVar, detector *wake.Detector, sessions *session.Controller) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		level.Set(levelOf(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.WakeChanged {
		detector.Reconfigure(new.Wake.Detector())
		slog.Info("wake tables reloaded", "confusions", len(new.Wake.Confusions))
	}
	if d.SessionChanged {
		sessions.Reconfigure(new.Session.Controller())
		slog.Info("session settings reloaded", "timeout", new.Session.Timeout)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes take effect after a restart", "sections", d.RestartRequired)
	}
}

func newResolver(cfg *config.Config, cache *resolve.Cache) *resolve.Resolver {
	walk := cfg.Catalog.Walker()
	walk.Roots = expandAll(walk.Roots)
	walk.AppRoots = expandAll(walk.AppRoots)
	search := cfg.Catalog.FileSearch(cfg.Cache.SimilarityCutoff)
	search.Root = expandHome(search.Root)
	if search.Root == "" {
		search.Root, _ = os.UserHomeDir()
	}

	return resolve.New(cache,
		resolve.WithStrategies(
			resolve.IndexStrategy(xdg.New()),
			resolve.ShortcutStrategy(xdg.NewShortcuts(expandAll(cfg.Catalog.ShortcutDirs)...)),
			resolve.WalkStrategy(xdg.NewWalker(walk)),
		),
		resolve.WithFileSearch(resolve.NewFileSearch(search)),
		resolve.WithSimilarityCutoff(cfg.Cache.SimilarityCutoff),
	)
}

func expandAll(paths []string) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = expandHome(p)
	}
	return out
}

func cacheLoaded(cache *resolve.Cache) func(context.Context) error {
	return func(context.Context) error {
		if cache.Snapshot().GeneratedAt.IsZero() {
			return errors.New("resource cache empty, scan pending")
		}
		if !cache.Fresh() {
			return errors.New("resource cache expired")
		}
		return nil
	}
}

// openUsageStore opens the configured store. Without one, history lives in
// memory for the lifetime of the process.
func openUsageStore(ctx context.Context, c config.UsageConfig) (usage.Store, error) {
	switch {
	case c.PostgresDSN != "":
		return usage.OpenPostgres(ctx, c.PostgresDSN)
	case c.SQLitePath != "":
		path := expandHome(c.SQLitePath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("usage: %w", err)
		}
		return usage.OpenSQLite(ctx, path)
	default:
		return usage.NewMemoryStore(), nil
	}
}

func printStartupSummary(cfg *config.Config, textMode bool) {
	input := "microphone"
	if textMode {
		input = "stdin (--text)"
	}
	listen := cfg.Server.ListenAddr
	if listen == "" {
		listen = "(disabled)"
	}
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║          Friday: startup summary              ║")
	fmt.Println("╠═══════════════════════════════════════════════╣")
	fmt.Printf("║  Wake phrase     : %-26s ║\n", cfg.Wake.Phrase)
	fmt.Printf("║  Input           : %-26s ║\n", input)
	fmt.Printf("║  Transcription   : %-26s ║\n", describe(cfg.Transcription.Backends))
	fmt.Printf("║  Speech          : %-26s ║\n", describe(cfg.Speech.Backends))
	fmt.Printf("║  System ops      : %-26s ║\n", sysopsMode(cfg.SysOps))
	fmt.Printf("║  Session timeout : %-26s ║\n", cfg.Session.Timeout)
	fmt.Printf("║  Admin API       : %-26s ║\n", listen)
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func sysopsMode(c config.SysOpsConfig) string {
	if c.DryRun {
		return c.Name + " (dry run)"
	}
	return c.Name
}
