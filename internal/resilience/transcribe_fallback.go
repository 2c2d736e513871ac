package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
)

// TranscriberFallback implements [transcribe.Transcriber] with failover across
// backends. [transcribe.ErrEmpty] and context cancellation are neutral: the
// audio held no speech, or the caller gave up, so no other backend is tried.
type TranscriberFallback struct {
	group *FallbackGroup[transcribe.Transcriber]
}

var _ transcribe.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// preferred backend. cfg.CircuitBreaker.Neutral is set by this constructor.
func NewTranscriberFallback(primary transcribe.Transcriber, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	cfg.CircuitBreaker.Neutral = neutralCallErr(transcribe.ErrEmpty)
	return &TranscriberFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *TranscriberFallback) AddFallback(name string, t transcribe.Transcriber) {
	f.group.AddFallback(name, t)
}

// Status reports the breaker state of every backend.
func (f *TranscriberFallback) Status() []EntryStatus { return f.group.Status() }

// Transcribe implements [transcribe.Transcriber].
func (f *TranscriberFallback) Transcribe(ctx context.Context, chunk audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	return ExecuteWithResult(f.group, func(t transcribe.Transcriber) (transcribe.Segment, error) {
		return t.Transcribe(ctx, chunk, profile)
	})
}

// neutralCallErr classifies errors that say nothing about backend health.
func neutralCallErr(sentinels ...error) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, context.Canceled) {
			return true
		}
		for _, s := range sentinels {
			if errors.Is(err, s) {
				return true
			}
		}
		return false
	}
}
