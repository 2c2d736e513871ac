// Package mock provides an in-memory [audio.Source] for use in unit tests.
//
// The mock is safe for concurrent use. It records calls and exposes fields the
// test can set to control behaviour.
//
// Typical usage:
//
//	src := &mock.Source{Frames: []audio.Frame{frame1, frame2}}
//	ch, err := src.Open(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/friday/pkg/audio"
)

// Source is a mock implementation of [audio.Source]. It replays Frames and
// then either closes the channel or, when Hold is true, keeps it open until
// Close or context cancellation.
type Source struct {
	mu sync.Mutex

	// Frames are delivered in order after Open.
	Frames []audio.Frame

	// Hold keeps the channel open after all frames are delivered.
	Hold bool

	// OpenErr is returned by Open when non-nil.
	OpenErr error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	done     chan struct{}
	doneOnce sync.Once
}

var _ audio.Source = (*Source)(nil)

// Open implements [audio.Source].
func (s *Source) Open(ctx context.Context) (<-chan audio.Frame, error) {
	s.mu.Lock()
	s.CallCountOpen++
	if s.OpenErr != nil {
		err := s.OpenErr
		s.mu.Unlock()
		return nil, err
	}
	frames := append([]audio.Frame(nil), s.Frames...)
	if s.done == nil {
		s.done = make(chan struct{})
	}
	done := s.done
	hold := s.Hold
	s.mu.Unlock()

	out := make(chan audio.Frame)
	go func() {
		defer close(out)
		for _, f := range frames {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		if hold {
			select {
			case <-ctx.Done():
			case <-done:
			}
		}
	}()
	return out, nil
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	if s.done == nil {
		s.done = make(chan struct{})
	}
	done := s.done
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(done) })
	return nil
}
