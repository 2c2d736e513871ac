// Package audio defines the capture-side types of the Friday pipeline and the
// bounded producer/consumer queue that decouples the microphone from
// transcription.
//
// The primary abstractions are:
//
//   - [Source]: opens an input device and delivers [Frame] values.
//   - [Queue]: a bounded, non-blocking hand-off between the capture
//     goroutine and the single pipeline consumer.
//   - [Chunker]: drains the queue into a [Chunk] once a byte threshold is
//     reached or a drain interval elapses.
//   - [Segmenter]: groups voiced chunks into utterances using an energy gate.
//
// Device-specific sources live in sub-packages (audio/portaudio). Tests use
// audio/mock.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrDeviceUnavailable is returned by [Source.Open] when the input device
// cannot be acquired. It is the only fatal condition at startup.
var ErrDeviceUnavailable = errors.New("audio: input device unavailable")

// Frame is a single block of captured audio.
type Frame struct {
	// Data is 16-bit signed little-endian PCM.
	Data []byte

	// SampleRate in Hz (16000 for the transcription models).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Timestamp is the wall-clock capture time of the first sample.
	Timestamp time.Time
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	return pcmDuration(len(f.Data), f.SampleRate, f.Channels)
}

// Source is an audio input device.
//
// Implementations must be safe for concurrent use of Close with the reader of
// the returned channel.
type Source interface {
	// Open acquires the device and starts capture. The returned channel
	// delivers frames until ctx is cancelled or Close is called, after which
	// it is closed. A device that cannot be opened yields an error wrapping
	// [ErrDeviceUnavailable].
	Open(ctx context.Context) (<-chan Frame, error)

	// Close stops capture and releases the device. Safe to call more than once.
	Close() error
}

// Chunk is a run of consecutive frames drained from the [Queue] in one go.
// It is owned by the consumer once returned.
type Chunk struct {
	// PCM is 16-bit signed little-endian audio.
	PCM []byte

	SampleRate int
	Channels   int

	// Start is the capture time of the first frame in the chunk.
	Start time.Time
}

// Empty reports whether the chunk carries no audio.
func (c Chunk) Empty() bool { return len(c.PCM) == 0 }

// Duration returns the playback duration of the chunk.
func (c Chunk) Duration() time.Duration {
	return pcmDuration(len(c.PCM), c.SampleRate, c.Channels)
}

// RMS returns the root-mean-square energy of the chunk in 16-bit PCM units.
func (c Chunk) RMS() float64 { return RMS(c.PCM) }

// Samples returns the chunk as mono float32 samples in [-1, 1].
func (c Chunk) Samples() []float32 { return PCMToFloat32Mono(c.PCM, c.Channels) }

// Append returns c extended by other. Format fields are taken from c unless
// c is empty.
func (c Chunk) Append(other Chunk) Chunk {
	if c.Empty() {
		return Chunk{
			PCM:        append([]byte(nil), other.PCM...),
			SampleRate: other.SampleRate,
			Channels:   other.Channels,
			Start:      other.Start,
		}
	}
	c.PCM = append(c.PCM, other.PCM...)
	return c
}

func pcmDuration(n, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	if channels <= 0 {
		channels = 1
	}
	samples := n / (2 * channels)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
