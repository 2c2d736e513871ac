// Package transcribe defines the Transcriber port used by the Friday pipeline.
//
// A Transcriber turns one utterance worth of PCM audio into text. Two quality
// profiles exist: [ProfileFast] is used for continuous wake-phrase scanning
// and trades accuracy for latency, [ProfileAccurate] is used for commands
// once a session is active. Backends map profiles to models of their choice.
//
// Implementations must be safe for concurrent use.
package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
)

// ErrEmpty is returned when the backend produced no text for the audio.
var ErrEmpty = errors.New("transcribe: no speech recognised")

// Profile selects the speed/accuracy trade-off of a transcription call.
type Profile int

const (
	// ProfileFast is a small, low-latency model for wake scanning.
	ProfileFast Profile = iota

	// ProfileAccurate is a larger model for command transcription.
	ProfileAccurate
)

// String returns the profile name used in config and logs.
func (p Profile) String() string {
	switch p {
	case ProfileFast:
		return "fast"
	case ProfileAccurate:
		return "accurate"
	default:
		return "unknown"
	}
}

// Segment is the immutable result of one transcription call.
type Segment struct {
	// Text is the recognised text, trimmed of surrounding whitespace.
	Text string

	// Profile is the profile the segment was produced with.
	Profile Profile

	// Timestamp is when the segment was produced.
	Timestamp time.Time
}

// Transcriber is the transcription port.
type Transcriber interface {
	// Transcribe returns the text spoken in chunk. A result with no text is
	// reported as [ErrEmpty] so that callers can distinguish silence from
	// backend failures.
	Transcribe(ctx context.Context, chunk audio.Chunk, profile Profile) (Segment, error)
}
