// Package espeak provides a local [speech.Speaker] that shells out to
// espeak-ng (or any binary accepting the same flags). It needs no network and
// serves as the last entry of the speech failover chain.
package espeak

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/MrWong99/friday/pkg/provider/speech"
)

const (
	defaultBinary = "espeak-ng"
	defaultRate   = 170
)

// Option configures a [Speaker].
type Option func(*Speaker)

// WithBinary sets the executable. Defaults to "espeak-ng".
func WithBinary(bin string) Option {
	return func(s *Speaker) {
		if bin != "" {
			s.binary = bin
		}
	}
}

// WithRate sets the speaking rate in words per minute. Defaults to 170.
func WithRate(wpm int) Option {
	return func(s *Speaker) {
		if wpm > 0 {
			s.rate = wpm
		}
	}
}

// WithVoice selects an espeak voice, e.g. "en-us".
func WithVoice(voice string) Option {
	return func(s *Speaker) { s.voice = voice }
}

// Speaker runs one espeak process per utterance. Calls are serialised.
type Speaker struct {
	binary string
	rate   int
	voice  string

	mu sync.Mutex
}

var _ speech.Speaker = (*Speaker)(nil)

// New returns a Speaker.
func New(opts ...Option) *Speaker {
	s := &Speaker{binary: defaultBinary, rate: defaultRate}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Speak implements [speech.Speaker].
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	args := []string{"-s", strconv.Itoa(s.rate)}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	// "--" keeps replies starting with "-" from being read as flags.
	args = append(args, "--", text)

	out, err := exec.CommandContext(ctx, s.binary, args...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("espeak: %s exited with %d: %s", s.binary, exitErr.ExitCode(), strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("espeak: run %s: %w", s.binary, err)
	}
	return nil
}
