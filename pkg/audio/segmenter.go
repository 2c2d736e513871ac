package audio

import "time"

// DefaultSilenceRMS is the energy level (16-bit PCM units) below which a
// chunk is treated as silence.
const DefaultSilenceRMS = 300.0

// Segmenter groups voiced chunks into utterances. A chunk whose RMS energy is
// at or above the silence threshold extends the current utterance; the first
// silent chunk after speech, or reaching MaxDuration, completes it. Silent
// chunks with no speech in progress are discarded so that silence never
// reaches the transcriber.
//
// Not safe for concurrent use.
type Segmenter struct {
	silenceRMS  float64
	maxDuration time.Duration

	current Chunk
}

// NewSegmenter returns a Segmenter. A non-positive silenceRMS selects
// [DefaultSilenceRMS]; a non-positive maxDuration selects 10 seconds.
func NewSegmenter(silenceRMS float64, maxDuration time.Duration) *Segmenter {
	if silenceRMS <= 0 {
		silenceRMS = DefaultSilenceRMS
	}
	if maxDuration <= 0 {
		maxDuration = 10 * time.Second
	}
	return &Segmenter{silenceRMS: silenceRMS, maxDuration: maxDuration}
}

// Push feeds one chunk and returns a completed utterance when one is ready.
func (s *Segmenter) Push(c Chunk) (Chunk, bool) {
	voiced := !c.Empty() && c.RMS() >= s.silenceRMS
	switch {
	case voiced:
		s.current = s.current.Append(c)
		if s.current.Duration() >= s.maxDuration {
			return s.take(), true
		}
		return Chunk{}, false
	case !s.current.Empty():
		// Trailing silence ends the utterance.
		return s.take(), true
	default:
		return Chunk{}, false
	}
}

// Pending reports whether speech is buffered.
func (s *Segmenter) Pending() bool { return !s.current.Empty() }

// Flush returns buffered speech as a final utterance. Used when the input
// ends mid-utterance.
func (s *Segmenter) Flush() (Chunk, bool) {
	if s.current.Empty() {
		return Chunk{}, false
	}
	return s.take(), true
}

// Reset discards any buffered speech.
func (s *Segmenter) Reset() { s.current = Chunk{} }

func (s *Segmenter) take() Chunk {
	out := s.current
	s.current = Chunk{}
	return out
}
