// Package assistant owns the Friday pipeline.
//
// The Assistant is the single consumer of captured audio: it drains the
// bounded capture queue, segments speech, transcribes it, watches for the
// wake phrase, drives the session state machine and turns commands into
// dispatched actions and spoken replies. Every utterance is handled inside
// one recovered cycle, so a fault while handling a command costs an apology,
// never the listening loop.
//
// Typed input (the --text mode and the admin API) enters the same cycle
// through [Assistant.HandleText].
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/friday/internal/dispatch"
	"github.com/MrWong99/friday/internal/intent"
	"github.com/MrWong99/friday/internal/observe"
	"github.com/MrWong99/friday/internal/session"
	"github.com/MrWong99/friday/internal/wake"
	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	"go.opentelemetry.io/otel/metric"
)

// Spoken replies owned by the loop rather than the dispatcher.
const (
	MsgNotCaught     = "Sorry, I didn't catch that."
	MsgSomethingWent = "Sorry, something went wrong."
	defaultGreeting  = "Yes"
)

// Speaker voices replies. [speech.Output] implements it.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// Dispatcher executes parsed intents.
type Dispatcher interface {
	Dispatch(ctx context.Context, in intent.Intent) dispatch.Reply
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

// Components holds the collaborators of an Assistant. Source and
// Transcriber may be nil when only typed input is used.
type Components struct {
	Source      audio.Source
	Transcriber transcribe.Transcriber
	Wake        *wake.Detector
	Session     *session.Controller
	Parser      *intent.Parser
	Dispatcher  Dispatcher
	Speech      Speaker
}

// Config tunes the audio side of the loop.
type Config struct {
	// QueueFrames bounds the capture queue. Default: 256.
	QueueFrames int

	// Chunker controls how the queue is drained.
	Chunker audio.ChunkerConfig

	// SilenceRMS is the energy gate of the segmenter.
	SilenceRMS float64

	// MaxUtterance caps a single utterance. Default: 10s.
	MaxUtterance time.Duration

	// Greeting is spoken when a session opens. Default: "Yes".
	Greeting string

	// ReadyMessage is spoken once when listening starts. Empty skips it.
	ReadyMessage string

	// PollInterval is how often the session timeout is checked in text
	// mode. Default: 1s.
	PollInterval time.Duration
}

// Option configures an [Assistant].
type Option func(*Assistant)

// WithMetrics records pipeline metrics on m instead of the default
// instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// Outcome describes what one utterance did.
type Outcome struct {
	// Text is the transcript or typed input.
	Text string `json:"text"`

	// Woke reports whether the utterance carried the wake phrase.
	Woke bool `json:"woke"`

	// Reply is what was spoken, if anything.
	Reply string `json:"reply,omitempty"`

	Action     intent.Action `json:"action,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`

	// State is the session state after the utterance.
	State string `json:"state"`
}

// Assistant runs the pipeline. HandleText may be called concurrently with
// Run; utterances are processed one at a time.
type Assistant struct {
	c       Components
	cfg     Config
	metrics *observe.Metrics

	// mu serialises utterance handling so that session and cache mutation
	// have a single writer.
	mu      sync.Mutex
	running atomic.Bool
}

// New returns an Assistant. Wake, Session, Parser, Dispatcher and Speech
// are required.
func New(c Components, cfg Config, opts ...Option) (*Assistant, error) {
	var errs []error
	if c.Wake == nil {
		errs = append(errs, errors.New("wake detector is required"))
	}
	if c.Session == nil {
		errs = append(errs, errors.New("session controller is required"))
	}
	if c.Parser == nil {
		errs = append(errs, errors.New("intent parser is required"))
	}
	if c.Dispatcher == nil {
		errs = append(errs, errors.New("dispatcher is required"))
	}
	if c.Speech == nil {
		errs = append(errs, errors.New("speech output is required"))
	}
	if c.Source != nil && c.Transcriber == nil {
		errs = append(errs, errors.New("an audio source needs a transcriber"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	if cfg.QueueFrames <= 0 {
		cfg.QueueFrames = 256
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = 10 * time.Second
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	a := &Assistant{c: c, cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	c.Session.OnEnd(func(s session.Session) {
		a.metrics.RecordSessionEnd(context.Background(), s.EndReason.String())
	})
	return a, nil
}

// Running reports whether a Run or RunText loop is active.
func (a *Assistant) Running() bool { return a.running.Load() }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run opens the audio source and processes speech until ctx is cancelled or
// the source ends. A source that cannot be opened yields an error wrapping
// [audio.ErrDeviceUnavailable]. Any active session is shut down on return.
//
// When ctx is done, Run returns ctx.Err(). When the source closes its
// channel, Run flushes buffered speech and returns nil.
func (a *Assistant) Run(ctx context.Context) error {
	if a.c.Source == nil {
		return errors.New("assistant: no audio source configured")
	}
	frames, err := a.c.Source.Open(ctx)
	if err != nil {
		return fmt.Errorf("assistant: open audio source: %w", err)
	}
	defer func() {
		if err := a.c.Source.Close(); err != nil {
			slog.Warn("assistant: close audio source", "err", err)
		}
	}()
	defer a.c.Session.Shutdown()

	a.running.Store(true)
	defer a.running.Store(false)

	q := audio.NewQueue(a.cfg.QueueFrames)
	go q.Run(ctx, frames)
	chunker := audio.NewChunker(q, a.cfg.Chunker)
	seg := audio.NewSegmenter(a.cfg.SilenceRMS, a.cfg.MaxUtterance)

	slog.Info("assistant: listening", "wake_phrase", a.c.Wake.Config().Phrase)
	if a.cfg.ReadyMessage != "" {
		a.say(ctx, a.cfg.ReadyMessage)
	}

	var dropped uint64
	for {
		chunk, err := chunker.Next(ctx)
		if errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if utt, ok := seg.Flush(); ok {
				a.handleAudio(ctx, utt)
			}
			slog.Info("assistant: audio source ended")
			return nil
		}
		if err != nil {
			return err
		}

		if d := q.Dropped(); d > dropped {
			a.metrics.FramesDropped.Add(ctx, int64(d-dropped))
			slog.Debug("assistant: capture queue overflow", "dropped_total", d)
			dropped = d
		}

		a.poll()
		if utt, ok := seg.Push(chunk); ok {
			a.handleAudio(ctx, utt)
		}
	}
}

// poll ends a timed-out session. Timeouts are silent.
func (a *Assistant) poll() {
	if a.c.Session.Poll() {
		slog.Debug("assistant: session timed out")
	}
}

// handleAudio transcribes one utterance and handles the text. While no
// session is active the fast profile is used and unrecognised audio is
// ignored; inside a session the accurate profile is used and failures are
// apologised for.
func (a *Assistant) handleAudio(ctx context.Context, utt audio.Chunk) {
	a.cycle(ctx, "audio", func(ctx context.Context) Outcome {
		if a.c.Session.State() == session.StateListening {
			seg, err := a.transcribe(ctx, utt, transcribe.ProfileFast)
			if err != nil {
				if !errors.Is(err, transcribe.ErrEmpty) {
					slog.Warn("assistant: wake transcription failed", "err", err)
				}
				return a.outcome(Outcome{})
			}
			refine := func(ctx context.Context) (string, bool) {
				better, err := a.transcribe(ctx, utt, transcribe.ProfileAccurate)
				if err != nil {
					return "", false
				}
				r := a.c.Wake.Detect(better.Text)
				return r.Trailing, r.IsWake && r.Trailing != ""
			}
			return a.handle(ctx, seg.Text, refine)
		}

		seg, err := a.transcribe(ctx, utt, transcribe.ProfileAccurate)
		switch {
		case errors.Is(err, transcribe.ErrEmpty):
			a.say(ctx, MsgNotCaught)
			return a.outcome(Outcome{Reply: MsgNotCaught})
		case err != nil:
			slog.Warn("assistant: command transcription failed", "err", err)
			a.say(ctx, MsgSomethingWent)
			return a.outcome(Outcome{Reply: MsgSomethingWent})
		}
		return a.handle(ctx, seg.Text, nil)
	})
}

func (a *Assistant) transcribe(ctx context.Context, utt audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	ctx, span := observe.StartStage(ctx, "transcribe", observe.Attr("friday.profile", profile.String()))
	start := time.Now()
	seg, err := a.c.Transcriber.Transcribe(ctx, utt, profile)
	a.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("profile", profile.String())))
	if err == nil && strings.TrimSpace(seg.Text) == "" {
		err = transcribe.ErrEmpty
	}
	if errors.Is(err, transcribe.ErrEmpty) {
		observe.EndStage(span, nil)
	} else {
		observe.EndStage(span, err)
	}
	if err == nil {
		observe.Logger(ctx).Debug("assistant: heard", "profile", profile.String(), "text", seg.Text)
	}
	return seg, err
}

// HandleText runs text through the pipeline as if it had been transcribed.
func (a *Assistant) HandleText(ctx context.Context, text string) Outcome {
	return a.cycle(ctx, "text", func(ctx context.Context) Outcome {
		return a.handle(ctx, text, nil)
	})
}

// cycle runs one utterance with panic recovery at its boundary.
func (a *Assistant) cycle(ctx context.Context, source string, fn func(context.Context) Outcome) (out Outcome) {
	ctx, span := observe.StartCycle(ctx, source)
	defer span.End()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			observe.Logger(ctx).Error("assistant: cycle panicked", "panic", r, "stack", string(debug.Stack()))
			a.say(ctx, MsgSomethingWent)
			out = a.outcome(Outcome{Reply: MsgSomethingWent})
		}
		a.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds())
	}()
	return fn(ctx)
}

// handle applies the wake/session rules to text. refine, when non-nil,
// re-transcribes a single-shot command with the accurate profile.
func (a *Assistant) handle(ctx context.Context, text string, refine func(context.Context) (string, bool)) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.poll()

	out := Outcome{Text: text}
	r := a.c.Wake.Detect(text)

	if a.c.Session.State() == session.StateListening {
		if !r.IsWake {
			return a.outcome(out)
		}
		out.Woke = true
		a.metrics.RecordWake(ctx, r.Layer.String())

		tr, err := a.c.Session.OnWake(r.Trailing)
		if err != nil {
			slog.Debug("assistant: wake ignored", "err", err)
			return a.outcome(out)
		}
		switch tr {
		case session.TransitionEnter:
			a.metrics.ActiveSessions.Add(ctx, 1)
			a.say(ctx, a.cfg.Greeting)
			out.Reply = a.cfg.Greeting
			return a.outcome(out)
		case session.TransitionSingleShot:
			cmd := r.Trailing
			if refine != nil {
				if better, ok := refine(ctx); ok {
					cmd = better
				}
			}
			return a.command(ctx, out, cmd)
		}
		return a.outcome(out)
	}

	// Inside a session a leading wake phrase is dropped; said alone it only
	// keeps the session alive.
	cmd := text
	if r.IsWake && r.Layer != wake.LayerShort && strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), r.Matched) {
		out.Woke = true
		if r.Trailing == "" {
			a.c.Session.Command(r.Matched)
			return a.outcome(out)
		}
		cmd = r.Trailing
	}
	return a.command(ctx, out, cmd)
}

// command parses and dispatches cmd and speaks the reply. The caller holds
// a.mu.
func (a *Assistant) command(ctx context.Context, out Outcome, cmd string) Outcome {
	// Filler-only speech ("um", "ok ok") is not a command and must not keep
	// a session alive.
	if !a.c.Session.Command(intent.Normalize(cmd)) {
		slog.Debug("assistant: command too short", "text", cmd)
		a.say(ctx, MsgNotCaught)
		out.Reply = MsgNotCaught
		return a.outcome(out)
	}

	in := a.c.Parser.Parse(cmd)
	dctx, span := observe.StartStage(ctx, "dispatch", observe.Attr("friday.action", string(in.Action)))
	reply := a.c.Dispatcher.Dispatch(dctx, in)
	observe.EndStage(span, reply.Err)

	status := "ok"
	if !reply.OK {
		status = "failed"
	}
	a.metrics.RecordCommand(ctx, string(in.Action), status)
	observe.Logger(ctx).Info("assistant: command handled",
		"action", in.Action, "rule", in.Rule, "confidence", in.Confidence, "ok", reply.OK)

	a.say(ctx, reply.Text)
	if in.Action == intent.ActionFarewell {
		a.c.Session.EndFarewell()
	}

	out.Reply = reply.Text
	out.Action = in.Action
	out.Confidence = in.Confidence
	return a.outcome(out)
}

func (a *Assistant) say(ctx context.Context, text string) {
	ctx, span := observe.StartStage(ctx, "speak")
	defer span.End()
	start := time.Now()
	a.c.Speech.Speak(ctx, text)
	a.metrics.SpeechDuration.Record(ctx, time.Since(start).Seconds())
}

func (a *Assistant) outcome(out Outcome) Outcome {
	out.State = a.c.Session.State().String()
	return out
}
