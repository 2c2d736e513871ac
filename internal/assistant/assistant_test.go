package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/friday/internal/assistant"
	"github.com/MrWong99/friday/internal/dispatch"
	"github.com/MrWong99/friday/internal/intent"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/resolve"
	"github.com/MrWong99/friday/internal/session"
	"github.com/MrWong99/friday/internal/wake"
	"github.com/MrWong99/friday/pkg/audio"
	audiomock "github.com/MrWong99/friday/pkg/audio/mock"
	catalogmock "github.com/MrWong99/friday/pkg/provider/catalog/mock"
	"github.com/MrWong99/friday/pkg/provider/speech"
	speechmock "github.com/MrWong99/friday/pkg/provider/speech/mock"
	sysmock "github.com/MrWong99/friday/pkg/provider/sysops/mock"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	transcribemock "github.com/MrWong99/friday/pkg/provider/transcribe/mock"
	"go.opentelemetry.io/otel/metric/noop"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// harness wires a real pipeline around mock ports.
type harness struct {
	clk         *clock
	ops         *sysmock.Operations
	index       *catalogmock.Catalog
	shortcuts   *catalogmock.Shortcuts
	cache       *resolve.Cache
	speaker     *speechmock.Speaker
	transcriber *transcribemock.Transcriber
	session     *session.Controller
	assistant   *assistant.Assistant
}

func newHarness(t *testing.T, src audio.Source, dispatcher assistant.Dispatcher) *harness {
	t.Helper()
	h := &harness{
		clk:         &clock{t: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)},
		ops:         &sysmock.Operations{Volume: 50},
		index:       &catalogmock.Catalog{Folders: map[string]string{"downloads": "/home/u/Downloads"}},
		shortcuts:   &catalogmock.Shortcuts{Result: map[string]string{"chrome": "/usr/share/applications/google-chrome.desktop"}},
		speaker:     &speechmock.Speaker{},
		transcriber: &transcribemock.Transcriber{},
	}
	h.cache = resolve.NewCache(resolve.WithCacheClock(h.clk.Now), resolve.WithTTL(time.Hour))
	resolver := resolve.New(h.cache,
		resolve.WithClock(h.clk.Now),
		resolve.WithStrategies(
			resolve.IndexStrategy(h.index),
			resolve.ShortcutStrategy(h.shortcuts),
			resolve.WalkStrategy(&catalogmock.Walker{}),
		),
	)
	if dispatcher == nil {
		dispatcher = dispatch.New(h.ops, resolver)
	}
	h.session = session.NewController(session.Config{Timeout: 30 * time.Second}, session.WithClock(h.clk.Now))

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	c := assistant.Components{
		Source:      src,
		Transcriber: h.transcriber,
		Wake:        wake.New(wake.DefaultConfig()),
		Session:     h.session,
		Parser:      intent.NewParser(intent.WithClock(h.clk.Now)),
		Dispatcher:  dispatcher,
		Speech:      speech.NewOutput(h.speaker),
	}
	a, err := assistant.New(c, assistant.Config{
		Chunker:      audio.ChunkerConfig{MaxBytes: len(voiced().Data), Interval: time.Second},
		PollInterval: 10 * time.Millisecond,
	}, assistant.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("assistant.New: %v", err)
	}
	h.assistant = a
	return h
}

func pcmFrame(value int16) audio.Frame {
	s := make([]int16, 320)
	for i := range s {
		s[i] = value
	}
	return audio.Frame{Data: audio.Int16ToPCM(s), SampleRate: 16000, Channels: 1, Timestamp: time.Now()}
}

func voiced() audio.Frame { return pcmFrame(2000) }
func silent() audio.Frame { return pcmFrame(0) }

func (h *harness) say(t *testing.T, text string) assistant.Outcome {
	t.Helper()
	return h.assistant.HandleText(context.Background(), text)
}

func TestScenario_SingleShotVolume(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	out := h.say(t, "friday set volume to 40")
	if out.Reply != "Volume set to 40 percent" {
		t.Errorf("reply = %q, want %q", out.Reply, "Volume set to 40 percent")
	}
	if !out.Woke || out.Action != intent.ActionSetVolume || out.State != "listening" {
		t.Errorf("outcome = %+v", out)
	}
	if h.ops.Volume != 40 {
		t.Errorf("volume = %d, want 40", h.ops.Volume)
	}
	if h.session.Started() != 0 {
		t.Error("a single-shot command must not open a session")
	}
}

func TestScenario_OpenChromeSecondStrategyCached(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	if out := h.say(t, "friday"); out.Reply != "Yes" || out.State != "active" {
		t.Fatalf("wake outcome = %+v", out)
	}
	if out := h.say(t, "open chrome"); out.Reply != "Opening chrome" {
		t.Fatalf("reply = %q, want %q", out.Reply, "Opening chrome")
	}
	if h.index.ApplicationsCalls != 1 || h.shortcuts.Calls != 1 {
		t.Errorf("discovery calls = index %d, shortcuts %d, want 1 and 1", h.index.ApplicationsCalls, h.shortcuts.Calls)
	}
	if p, ok := h.cache.Lookup(resolve.KindApplication, "chrome"); !ok || p != "/usr/share/applications/google-chrome.desktop" {
		t.Errorf("cache lookup = %q %v", p, ok)
	}

	h.say(t, "open chrome")
	if h.shortcuts.Calls != 1 {
		t.Errorf("second open ran discovery again (%d calls)", h.shortcuts.Calls)
	}
	if got := h.ops.CallCount("OpenResource"); got != 2 {
		t.Errorf("OpenResource calls = %d, want 2", got)
	}
}

func TestScenario_UnknownFolder(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	h.say(t, "friday")
	out := h.say(t, "open qzx folder")
	if out.Reply != "Sorry, I couldn't find qzx folder" {
		t.Errorf("reply = %q, want %q", out.Reply, "Sorry, I couldn't find qzx folder")
	}
	if out.State != "active" {
		t.Error("a failed lookup must not end the session")
	}
	if h.ops.CallCount("OpenResource") != 0 {
		t.Error("nothing should have been opened")
	}
}

func TestSession_FarewellAndTimeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	h.say(t, "friday")
	if out := h.say(t, "thank you"); out.Reply != "Goodbye!" || out.State != "listening" {
		t.Errorf("farewell outcome = %+v", out)
	}

	h.say(t, "friday")
	h.clk.Advance(20 * time.Second)
	if out := h.say(t, "mute"); out.State != "active" {
		t.Fatalf("command inside the timeout ended the session: %+v", out)
	}
	h.clk.Advance(31 * time.Second)
	out := h.say(t, "open chrome")
	if out.Reply != "" || out.State != "listening" {
		t.Errorf("command after timeout = %+v, want ignored", out)
	}

	want := []string{"Yes", "Goodbye!", "Yes", "Volume muted"}
	if got := h.speaker.Texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("spoken = %q, want %q", got, want)
	}
}

func TestSession_FillerDoesNotExtendTimeout(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	h.say(t, "friday")
	h.clk.Advance(25 * time.Second)
	for _, filler := range []string{"um", "ok ok", "please"} {
		out := h.say(t, filler)
		if out.Reply != assistant.MsgNotCaught || out.Action != "" {
			t.Errorf("%q: outcome = %+v, want not caught", filler, out)
		}
	}
	h.clk.Advance(5 * time.Second)
	if !h.session.Poll() {
		t.Fatal("filler speech kept the session alive past its timeout")
	}
	if h.session.State() != session.StateListening {
		t.Errorf("state = %v, want listening", h.session.State())
	}
}

func TestSession_WakeInsideSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	h.say(t, "friday")
	if out := h.say(t, "friday mute"); out.Reply != "Volume muted" {
		t.Errorf("reply = %q, want wake phrase stripped", out.Reply)
	}
	if out := h.say(t, "friday"); out.Reply != "" || out.State != "active" {
		t.Errorf("repeated wake = %+v, want silent keep-alive", out)
	}
	if h.session.Started() != 1 {
		t.Errorf("sessions started = %d, want 1", h.session.Started())
	}
}

func TestIgnoresSpeechWithoutWake(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	out := h.say(t, "set volume to 10")
	if out.Woke || out.Reply != "" {
		t.Errorf("outcome = %+v, want ignored", out)
	}
	if len(h.ops.Calls) != 0 || len(h.speaker.Texts()) != 0 {
		t.Error("speech without the wake phrase had side effects")
	}
}

type panicDispatcher struct{ calls int }

func (p *panicDispatcher) Dispatch(context.Context, intent.Intent) dispatch.Reply {
	p.calls++
	if p.calls == 1 {
		panic("boom")
	}
	return dispatch.Reply{Text: "fine", OK: true}
}

func TestCycle_RecoversFromPanic(t *testing.T) {
	t.Parallel()
	d := &panicDispatcher{}
	h := newHarness(t, nil, d)

	h.say(t, "friday")
	if out := h.say(t, "mute"); out.Reply != assistant.MsgSomethingWent {
		t.Errorf("reply = %q, want apology", out.Reply)
	}
	if out := h.say(t, "mute"); out.Reply != "fine" {
		t.Errorf("reply after panic = %q, want fine", out.Reply)
	}
}

func TestRun_AudioSingleShot(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{Frames: []audio.Frame{silent(), voiced(), voiced(), silent()}}
	h := newHarness(t, src, nil)
	h.transcriber.Queue(transcribe.ProfileFast, "Friday, set volume to 40")

	if err := h.assistant.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.speaker.Texts(); !reflect.DeepEqual(got, []string{"Volume set to 40 percent"}) {
		t.Errorf("spoken = %q", got)
	}
	if got := h.transcriber.CallCount(transcribe.ProfileFast); got != 1 {
		t.Errorf("fast transcriptions = %d, want 1", got)
	}
	if src.CallCountClose != 1 {
		t.Errorf("source closed %d times, want 1", src.CallCountClose)
	}
}

func TestRun_AudioRefinesSingleShot(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{Frames: []audio.Frame{voiced(), silent()}}
	h := newHarness(t, src, nil)
	h.transcriber.Queue(transcribe.ProfileFast, "friday set volume to forty")
	h.transcriber.Queue(transcribe.ProfileAccurate, "Friday set volume to 40")

	if err := h.assistant.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.ops.Volume != 40 {
		t.Errorf("volume = %d, want 40 from the accurate transcript", h.ops.Volume)
	}
}

func TestRun_EmptyTranscriptionInSession(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{Frames: []audio.Frame{voiced(), silent()}}
	h := newHarness(t, src, nil)
	h.say(t, "friday")

	if err := h.assistant.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"Yes", assistant.MsgNotCaught}
	if got := h.speaker.Texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("spoken = %q, want %q", got, want)
	}
	if h.transcriber.CallCount(transcribe.ProfileAccurate) != 1 {
		t.Error("a command inside a session must use the accurate profile")
	}
	if h.session.State() != session.StateListening {
		t.Error("session should be shut down when Run returns")
	}
}

func TestRun_SilenceNeverTranscribed(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{Frames: []audio.Frame{silent(), silent(), silent()}}
	h := newHarness(t, src, nil)

	if err := h.assistant.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(h.transcriber.TranscribeCalls); n != 0 {
		t.Errorf("transcribe calls = %d, want 0", n)
	}
}

func TestRun_DeviceUnavailable(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{OpenErr: fmt.Errorf("%w: no such device", audio.ErrDeviceUnavailable)}
	h := newHarness(t, src, nil)

	err := h.assistant.Run(context.Background())
	if !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Errorf("Run error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestRun_CancelShutsDownSession(t *testing.T) {
	t.Parallel()
	src := &audiomock.Source{Hold: true}
	h := newHarness(t, src, nil)
	h.say(t, "friday")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.assistant.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if h.session.State() != session.StateListening {
		t.Error("cancel left a session active")
	}
}

func TestRunText(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil, nil)

	in := strings.NewReader("friday\nset volume to 40\n\nthank you\nmute\n")
	if err := h.assistant.RunText(context.Background(), in); err != nil {
		t.Fatalf("RunText: %v", err)
	}
	want := []string{"Yes", "Volume set to 40 percent", "Goodbye!"}
	if got := h.speaker.Texts(); !reflect.DeepEqual(got, want) {
		t.Errorf("spoken = %q, want %q", got, want)
	}
	if h.ops.Volume != 40 {
		t.Errorf("volume = %d, want 40 (mute after goodbye needs the wake phrase)", h.ops.Volume)
	}
}

func TestNew_RequiresComponents(t *testing.T) {
	t.Parallel()
	_, err := assistant.New(assistant.Components{Source: &audiomock.Source{}}, assistant.Config{})
	if err == nil {
		t.Fatal("New accepted empty components")
	}
	for _, want := range []string{"wake", "session", "parser", "dispatcher", "speech", "transcriber"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
