package resilience

import (
	"context"

	"github.com/MrWong99/friday/pkg/provider/speech"
)

// SpeakerFallback implements [speech.Speaker] by trying a premium backend
// first and silently falling back to the next healthy one.
type SpeakerFallback struct {
	group *FallbackGroup[speech.Speaker]
}

var _ speech.Speaker = (*SpeakerFallback)(nil)

// NewSpeakerFallback creates a [SpeakerFallback] with primary as the preferred
// backend.
func NewSpeakerFallback(primary speech.Speaker, primaryName string, cfg FallbackConfig) *SpeakerFallback {
	cfg.CircuitBreaker.Neutral = neutralCallErr()
	return &SpeakerFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional backend.
func (f *SpeakerFallback) AddFallback(name string, s speech.Speaker) {
	f.group.AddFallback(name, s)
}

// Status reports the breaker state of every backend.
func (f *SpeakerFallback) Status() []EntryStatus { return f.group.Status() }

// Speak implements [speech.Speaker].
func (f *SpeakerFallback) Speak(ctx context.Context, text string) error {
	return f.group.Execute(func(s speech.Speaker) error {
		return s.Speak(ctx, text)
	})
}
