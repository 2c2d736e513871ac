// Package mock provides test doubles for the speech package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/friday/pkg/provider/speech"
)

// Speaker is a mock implementation of [speech.Speaker].
type Speaker struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// SpeakCalls records the text of every call to Speak.
	SpeakCalls []string
}

var _ speech.Speaker = (*Speaker)(nil)

// Speak records text and returns SpeakErr.
func (s *Speaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeakCalls = append(s.SpeakCalls, text)
	return s.SpeakErr
}

// Texts returns a copy of the recorded texts.
func (s *Speaker) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.SpeakCalls...)
}

// Reset clears recorded calls.
func (s *Speaker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeakCalls = nil
}

// Player is a mock implementation of [speech.Player].
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// Played holds the PCM of every call, in order.
	Played [][]byte

	// SampleRates holds the sample rate of every call, in order.
	SampleRates []int
}

var _ speech.Player = (*Player)(nil)

// Play records the buffer and returns PlayErr.
func (p *Player) Play(_ context.Context, pcm []byte, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, append([]byte(nil), pcm...))
	p.SampleRates = append(p.SampleRates, sampleRate)
	return p.PlayErr
}

// Reset clears recorded calls.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = nil
	p.SampleRates = nil
}
