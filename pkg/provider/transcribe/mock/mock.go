// Package mock provides a test double for [transcribe.Transcriber].
//
// Results are queued per profile and consumed in order. When a queue is empty
// the mock returns [transcribe.ErrEmpty], which mirrors a backend hearing only
// silence.
//
// Example:
//
//	tr := &mock.Transcriber{}
//	tr.Queue(transcribe.ProfileFast, "friday")
//	tr.Queue(transcribe.ProfileAccurate, "open chrome")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	Chunk   audio.Chunk
	Profile transcribe.Profile
}

// Result is one queued reply. When Err is non-nil it is returned instead of
// Text.
type Result struct {
	Text string
	Err  error
}

// Transcriber is a mock implementation of [transcribe.Transcriber].
type Transcriber struct {
	mu sync.Mutex

	results map[transcribe.Profile][]Result

	// Err, if non-nil, is returned by every call regardless of queued results.
	Err error

	// Panic, if non-empty, makes Transcribe panic with this value.
	Panic string

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

var _ transcribe.Transcriber = (*Transcriber)(nil)

// Queue appends texts to the reply queue for profile.
func (t *Transcriber) Queue(profile transcribe.Profile, texts ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.results == nil {
		t.results = make(map[transcribe.Profile][]Result)
	}
	for _, s := range texts {
		t.results[profile] = append(t.results[profile], Result{Text: s})
	}
}

// QueueResult appends a raw result, typically an error, for profile.
func (t *Transcriber) QueueResult(profile transcribe.Profile, r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.results == nil {
		t.results = make(map[transcribe.Profile][]Result)
	}
	t.results[profile] = append(t.results[profile], r)
}

// Transcribe records the call and pops the next queued result for profile.
func (t *Transcriber) Transcribe(_ context.Context, chunk audio.Chunk, profile transcribe.Profile) (transcribe.Segment, error) {
	t.mu.Lock()
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Chunk: chunk, Profile: profile})
	if t.Panic != "" {
		msg := t.Panic
		t.mu.Unlock()
		panic(msg)
	}
	if t.Err != nil {
		err := t.Err
		t.mu.Unlock()
		return transcribe.Segment{}, err
	}
	queue := t.results[profile]
	if len(queue) == 0 {
		t.mu.Unlock()
		return transcribe.Segment{}, transcribe.ErrEmpty
	}
	r := queue[0]
	t.results[profile] = queue[1:]
	t.mu.Unlock()

	if r.Err != nil {
		return transcribe.Segment{}, r.Err
	}
	if r.Text == "" {
		return transcribe.Segment{}, transcribe.ErrEmpty
	}
	return transcribe.Segment{Text: r.Text, Profile: profile, Timestamp: time.Now()}, nil
}

// Pending returns how many results remain queued for profile.
func (t *Transcriber) Pending(profile transcribe.Profile) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results[profile])
}

// CallCount returns the number of Transcribe calls made with profile.
func (t *Transcriber) CallCount(profile transcribe.Profile) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.TranscribeCalls {
		if c.Profile == profile {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and queued results.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
	t.results = nil
	t.Err = nil
	t.Panic = ""
}
