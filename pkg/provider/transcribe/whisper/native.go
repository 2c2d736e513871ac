// Package whisper provides whisper.cpp-backed transcribers.
//
// [Native] links whisper.cpp through its CGO bindings and loads one model per
// profile, typically a tiny model for wake scanning and a base or small
// model for commands. [Server] talks to a running whisper-server over HTTP
// and is useful when the CGO toolchain is unavailable.
//
// The whisper.cpp static library (libwhisper.a) and header (whisper.h) must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH for Native.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

var _ transcribe.Transcriber = (*Native)(nil)

// NativeOption is a functional option for configuring a [Native] transcriber.
type NativeOption func(*Native)

// WithLanguage sets the language code passed to whisper (e.g., "en").
// Defaults to "en".
func WithLanguage(lang string) NativeOption {
	return func(n *Native) {
		if lang != "" {
			n.language = lang
		}
	}
}

// WithThreads sets the number of inference threads. Zero keeps the whisper.cpp
// default.
func WithThreads(threads uint) NativeOption {
	return func(n *Native) { n.threads = threads }
}

// Native transcribes with whisper.cpp in-process. Each profile owns a model;
// models are loaded once and shared, while a fresh whisper context is created
// per call because contexts are not safe for concurrent use.
type Native struct {
	language string
	threads  uint

	mu     sync.Mutex
	models map[transcribe.Profile]whisperlib.Model
}

// NewNative loads fastModel and accurateModel. When both paths are equal the
// model is loaded once and serves both profiles. accurateModel may be empty,
// in which case the fast model serves both.
func NewNative(fastModel, accurateModel string, opts ...NativeOption) (*Native, error) {
	if fastModel == "" {
		return nil, errors.New("whisper: fast model path must not be empty")
	}
	if accurateModel == "" {
		accurateModel = fastModel
	}

	fast, err := whisperlib.New(fastModel)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", fastModel, err)
	}
	accurate := fast
	if accurateModel != fastModel {
		accurate, err = whisperlib.New(accurateModel)
		if err != nil {
			fast.Close()
			return nil, fmt.Errorf("whisper: load model %q: %w", accurateModel, err)
		}
	}

	n := &Native{
		language: defaultLanguage,
		models: map[transcribe.Profile]whisperlib.Model{
			transcribe.ProfileFast:     fast,
			transcribe.ProfileAccurate: accurate,
		},
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Transcribe implements [transcribe.Transcriber].
func (n *Native) Transcribe(ctx context.Context, chunk audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	if err := ctx.Err(); err != nil {
		return transcribe.Segment{}, err
	}
	if chunk.SampleRate != 0 && chunk.SampleRate != defaultSampleRate {
		return transcribe.Segment{}, fmt.Errorf("whisper: sample rate %d unsupported, want %d", chunk.SampleRate, defaultSampleRate)
	}

	n.mu.Lock()
	model, ok := n.models[profile]
	n.mu.Unlock()
	if !ok || model == nil {
		return transcribe.Segment{}, fmt.Errorf("whisper: no model for profile %s", profile)
	}

	text, err := n.infer(model, chunk.Samples())
	if err != nil {
		return transcribe.Segment{}, err
	}
	if text == "" {
		return transcribe.Segment{}, transcribe.ErrEmpty
	}
	return transcribe.Segment{Text: text, Profile: profile, Timestamp: time.Now()}, nil
}

func (n *Native) infer(model whisperlib.Model, samples []float32) (string, error) {
	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", n.language, "err", err)
	}
	if n.threads > 0 {
		wctx.SetThreads(n.threads)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := cleanSegment(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the loaded models.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	var errs []error
	seen := make(map[whisperlib.Model]bool, len(n.models))
	for _, m := range n.models {
		if m == nil || seen[m] {
			continue
		}
		seen[m] = true
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	n.models = nil
	return errors.Join(errs...)
}

// cleanSegment strips whitespace and the bracketed non-speech annotations
// whisper emits for silence and noise, such as "[BLANK_AUDIO]" or "(wind)".
func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '[' && last == ']') || (first == '(' && last == ')') {
			return ""
		}
	}
	return s
}
