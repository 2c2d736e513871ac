// Package speech defines the speech output port used to voice replies.
//
// Backends implement [Speaker] and report failures as errors. The pipeline
// talks to an [Output], which never fails: it routes text to a Speaker
// (usually a failover chain of premium then local backends) and logs
// whatever goes wrong.
package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Speaker voices text. Speak blocks until playback has finished or ctx is
// cancelled. Implementations must be safe for concurrent use.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Player plays mono 16-bit little-endian PCM.
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// OutputOption configures an [Output].
type OutputOption func(*Output)

// WithEcho writes every reply to w as "Friday: <text>" before speaking it.
func WithEcho(w io.Writer) OutputOption {
	return func(o *Output) { o.echo = w }
}

// WithMute disables the Speaker. Replies are still echoed.
func WithMute(mute bool) OutputOption {
	return func(o *Output) { o.mute = mute }
}

// Output is the fire-and-forget speech port seen by the assistant.
type Output struct {
	speaker Speaker
	echo    io.Writer
	mute    bool
}

// NewOutput returns an Output speaking through s. s may be nil, in which case
// replies are only echoed.
func NewOutput(s Speaker, opts ...OutputOption) *Output {
	o := &Output{speaker: s}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Speak voices text. Failures are logged and never returned.
func (o *Output) Speak(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if o.echo != nil {
		fmt.Fprintf(o.echo, "Friday: %s\n", text)
	}
	if o.mute || o.speaker == nil {
		return
	}
	if err := o.speaker.Speak(ctx, text); err != nil {
		slog.Warn("speech: speak failed", "err", err, "text", text)
	}
}
