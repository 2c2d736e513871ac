// Package dispatch maps a parsed [intent.Intent] to one call on the
// system-operations port and composes the spoken reply.
//
// The dispatcher never performs a side effect itself. Every failure, whether
// an entity that could not be resolved or an operation that reported
// failure, becomes an apology the user hears; the session carries on.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/friday/internal/intent"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/resolve"
	"github.com/MrWong99/friday/internal/usage"
	"github.com/MrWong99/friday/pkg/provider/sysops"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrOperationFailed is set on a [Reply] when the system-operations port
	// reported failure.
	ErrOperationFailed = errors.New("dispatch: system operation failed")

	// ErrUnsupported is set on a [Reply] for actions the dispatcher does not
	// know.
	ErrUnsupported = errors.New("dispatch: unsupported action")
)

// Reply is the outcome of one dispatch.
type Reply struct {
	// Text is what the assistant says.
	Text string

	// OK reports whether the requested action happened.
	OK bool

	// Err explains a failure. It wraps [ErrOperationFailed] or
	// [resolve.ErrEntityNotFound] where applicable.
	Err error
}

// Resolver finds applications, folders and files by spoken name.
type Resolver interface {
	Resolve(ctx context.Context, text string, kind resolve.Kind) (resolve.Entity, error)
	ResolveFile(ctx context.Context, name string, exts []string) (resolve.Entity, error)
}

// Recorder receives one event per dispatch.
type Recorder interface {
	Record(ctx context.Context, e usage.Event) error
}

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithRecorder records every dispatched action.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.rec = r }
}

// WithMetrics records resolution latency and outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock replaces time.Now for usage events.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher executes intents. It is safe for concurrent use when its
// collaborators are.
type Dispatcher struct {
	ops      sysops.Operations
	resolver Resolver
	rec      Recorder
	metrics  *observe.Metrics
	now      func() time.Time
}

var _ Resolver = (*resolve.Resolver)(nil)

// New returns a Dispatcher.
func New(ops sysops.Operations, resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{ops: ops, resolver: resolver, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

func ok(text string) Reply { return Reply{Text: text, OK: true} }

func failed(text, op string) Reply {
	return Reply{Text: text, Err: fmt.Errorf("%w: %s", ErrOperationFailed, op)}
}

// Dispatch executes in and returns the reply to speak.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent) Reply {
	r := d.dispatch(ctx, in)
	if r.Err != nil {
		slog.Info("dispatch: action failed", "action", in.Action, "err", r.Err)
	}
	d.record(ctx, in)
	return r
}

func (d *Dispatcher) record(ctx context.Context, in intent.Intent) {
	if d.rec == nil {
		return
	}
	e := usage.Event{Action: string(in.Action), At: d.now()}
	switch in.Action {
	case intent.ActionOpenApp, intent.ActionOpenAndSearch:
		e.App = in.Slot(intent.SlotApp)
	}
	if err := d.rec.Record(ctx, e); err != nil {
		slog.Debug("dispatch: usage record failed", "err", err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, in intent.Intent) Reply {
	switch in.Action {
	case intent.ActionSetVolume:
		n, _ := in.Number(intent.NumLevel)
		if !d.ops.SetVolume(ctx, n) {
			return failed("Sorry, I couldn't change the volume", "set volume")
		}
		return ok(fmt.Sprintf("Volume set to %d percent", n))

	case intent.ActionAdjustVolume:
		delta, _ := in.Number(intent.NumDelta)
		level, done := d.ops.AdjustVolumeRelative(ctx, delta)
		if !done {
			return failed("Sorry, I couldn't change the volume", "adjust volume")
		}
		if delta < 0 {
			return ok(fmt.Sprintf("Volume decreased to %d percent", level))
		}
		return ok(fmt.Sprintf("Volume increased to %d percent", level))

	case intent.ActionMute:
		if !d.ops.SetVolume(ctx, 0) {
			return failed("Sorry, I couldn't change the volume", "mute")
		}
		return ok("Volume muted")

	case intent.ActionGetVolume:
		level, done := d.ops.GetVolume(ctx)
		if !done {
			return failed("Sorry, I couldn't read the volume", "get volume")
		}
		return ok(fmt.Sprintf("Volume is at %d percent", level))

	case intent.ActionSetBrightness:
		n, _ := in.Number(intent.NumLevel)
		if !d.ops.SetBrightness(ctx, n) {
			return failed("Sorry, I couldn't change the brightness", "set brightness")
		}
		return ok(fmt.Sprintf("Brightness set to %d percent", n))

	case intent.ActionAdjustBrightness:
		delta, _ := in.Number(intent.NumDelta)
		level, done := d.ops.AdjustBrightnessRelative(ctx, delta)
		if !done {
			return failed("Sorry, I couldn't change the brightness", "adjust brightness")
		}
		return ok(fmt.Sprintf("Brightness set to %d percent", level))

	case intent.ActionScreenshot:
		if _, done := d.ops.TakeScreenshot(ctx); !done {
			return failed("Sorry, I couldn't take a screenshot", "screenshot")
		}
		return ok("Screenshot saved")

	case intent.ActionShutdown:
		secs, _ := in.Number(intent.NumDelay)
		if !d.ops.Shutdown(ctx, time.Duration(secs)*time.Second) {
			return failed("Sorry, I couldn't shut down the computer", "shutdown")
		}
		if secs > 0 {
			return ok(fmt.Sprintf("Shutting down in %d seconds", secs))
		}
		return ok("Shutting down now")

	case intent.ActionRestart:
		secs, _ := in.Number(intent.NumDelay)
		if !d.ops.Restart(ctx, time.Duration(secs)*time.Second) {
			return failed("Sorry, I couldn't restart the computer", "restart")
		}
		if secs > 0 {
			return ok(fmt.Sprintf("Restarting in %d seconds", secs))
		}
		return ok("Restarting now")

	case intent.ActionSleep:
		if !d.ops.Sleep(ctx) {
			return failed("Sorry, I couldn't put the computer to sleep", "sleep")
		}
		return ok("Going to sleep")

	case intent.ActionSystemInfo:
		info, done := d.ops.SystemInfo(ctx)
		if !done {
			return failed("Sorry, I couldn't read the system information", "system info")
		}
		return ok(info.Summary())

	case intent.ActionWebSearch:
		q := in.Slot(intent.SlotQuery)
		if q == "" {
			return Reply{Text: "What should I search for?"}
		}
		if !d.ops.WebSearch(ctx, q) {
			return failed("Sorry, I couldn't open the browser", "web search")
		}
		return ok("Searching the web for " + q)

	case intent.ActionOpenAndSearch:
		return d.openAndSearch(ctx, in.Slot(intent.SlotApp), in.Slot(intent.SlotQuery))

	case intent.ActionOpenApp:
		name := in.Slot(intent.SlotApp)
		if r, done := d.open(ctx, name, resolve.KindApplication, name); !done {
			return r
		}
		return ok("Opening " + name)

	case intent.ActionOpenFolder:
		name := in.Slot(intent.SlotFolder)
		if r, done := d.open(ctx, name, resolve.KindFolder, name+" folder"); !done {
			return r
		}
		return ok("Opening " + name + " folder")

	case intent.ActionOpenFile:
		return d.openFile(ctx, in.Slot(intent.SlotName), in.Slot(intent.SlotType))

	case intent.ActionFarewell:
		return ok("Goodbye!")

	case intent.ActionChat:
		return ok(in.Slot(intent.SlotResponse))
	}
	return Reply{Text: "Sorry, I can't do that yet", Err: fmt.Errorf("%w: %q", ErrUnsupported, in.Action)}
}

// open resolves name and opens it. spoken is how the entity is named in
// apologies. On failure it returns the reply and false.
func (d *Dispatcher) open(ctx context.Context, name string, kind resolve.Kind, spoken string) (Reply, bool) {
	if strings.TrimSpace(name) == "" {
		return Reply{Text: fmt.Sprintf("Which %s should I open?", kind), Err: fmt.Errorf("%w: empty %s name", resolve.ErrEntityNotFound, kind)}, false
	}
	start := time.Now()
	e, err := d.resolver.Resolve(ctx, name, kind)
	d.observe(ctx, kind, e, err, start)
	if err != nil {
		return Reply{Text: "Sorry, I couldn't find " + spoken, Err: err}, false
	}
	if !d.ops.OpenResource(ctx, e.Path) {
		return failed("Sorry, I couldn't open "+spoken, "open "+e.Path), false
	}
	return Reply{OK: true}, true
}

// openAndSearch opens the application, then searches. A failed open
// short-circuits the search.
func (d *Dispatcher) openAndSearch(ctx context.Context, app, query string) Reply {
	if r, done := d.open(ctx, app, resolve.KindApplication, app); !done {
		return r
	}
	if !d.ops.WebSearch(ctx, query) {
		return failed(fmt.Sprintf("Opened %s but I couldn't search for %s", app, query), "web search")
	}
	return ok(fmt.Sprintf("Opening %s and searching for %s", app, query))
}

func (d *Dispatcher) openFile(ctx context.Context, name, fileType string) Reply {
	if strings.TrimSpace(name) == "" {
		return Reply{Text: "Which file should I open?", Err: fmt.Errorf("%w: empty file name", resolve.ErrEntityNotFound)}
	}
	start := time.Now()
	e, err := d.resolver.ResolveFile(ctx, name, intent.Extensions(fileType))
	d.observe(ctx, resolve.KindFile, e, err, start)
	if err != nil {
		return Reply{Text: "Sorry, I couldn't find " + name + " file", Err: err}
	}
	if !d.ops.OpenResource(ctx, e.Path) {
		return failed("Sorry, I couldn't open "+name, "open "+e.Path)
	}
	kind := intent.DescribeFile(e.Path)
	text := fmt.Sprintf("Opening %s, %s %s", name, article(kind), kind)
	if e.Location != "" {
		text += " from your " + e.Location
	}
	return ok(text)
}

func (d *Dispatcher) observe(ctx context.Context, kind resolve.Kind, e resolve.Entity, err error, start time.Time) {
	if d.metrics == nil {
		return
	}
	strategy := e.Strategy
	if err != nil {
		strategy = "none"
	}
	d.metrics.ResolveDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", string(kind))))
	d.metrics.RecordResolution(ctx, string(kind), strategy)
}

func article(noun string) string {
	if noun != "" && strings.ContainsRune("AEIOUaeiou", rune(noun[0])) {
		return "an"
	}
	return "a"
}
