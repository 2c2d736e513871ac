package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/speech/mock"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	trmock "github.com/MrWong99/friday/pkg/provider/transcribe/mock"
)

func TestFallbackGroup_Order(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		failing  map[string]bool
		want     string
		wantErr  error
		wantCall []string
	}{
		{name: "primary ok", want: "primary", wantCall: []string{"primary"}},
		{name: "primary fails", failing: map[string]bool{"primary": true}, want: "secondary", wantCall: []string{"primary", "secondary"}},
		{name: "all fail", failing: map[string]bool{"primary": true, "secondary": true}, wantErr: ErrAllFailed, wantCall: []string{"primary", "secondary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3}})
			fg.AddFallback("secondary", "secondary")

			var calls []string
			got, err := ExecuteWithResult(fg, func(v string) (string, error) {
				calls = append(calls, v)
				if tt.failing[v] {
					return "", errTest
				}
				return v, nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("result: got %q, want %q", got, tt.want)
			}
			if len(calls) != len(tt.wantCall) {
				t.Fatalf("calls: got %v, want %v", calls, tt.wantCall)
			}
			for i := range calls {
				if calls[i] != tt.wantCall[i] {
					t.Errorf("call %d: got %q, want %q", i, calls[i], tt.wantCall[i])
				}
			}
		})
	}
}

func TestFallbackGroup_OpenCircuitIsSkipped(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")

	for range 2 {
		_ = fg.Execute(func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	if err := fg.Execute(func(v string) error { called = append(called, v); return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(called) != 1 || called[0] != "secondary" {
		t.Errorf("called: got %v, want [secondary]", called)
	}

	status := fg.Status()
	if len(status) != 2 || status[0].State != "open" || status[1].State != "closed" {
		t.Errorf("status: got %+v", status)
	}
	if fg.Len() != 2 {
		t.Errorf("Len: got %d, want 2", fg.Len())
	}
}

func TestFallbackGroup_NeutralStopsFailover(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures: 1,
			Neutral:     func(err error) bool { return errors.Is(err, errNeutral) },
		},
	})
	fg.AddFallback("secondary", "secondary")

	var calls int
	err := fg.Execute(func(string) error { calls++; return errNeutral })
	if !errors.Is(err, errNeutral) || errors.Is(err, ErrAllFailed) {
		t.Fatalf("got %v, want bare neutral error", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if fg.Status()[0].State != "closed" {
		t.Errorf("neutral error must not open the primary breaker")
	}
}

func TestTranscriberFallback(t *testing.T) {
	t.Parallel()
	primary := &trmock.Transcriber{Err: errors.New("server down")}
	local := &trmock.Transcriber{}
	local.Queue(transcribe.ProfileAccurate, "open chrome")

	fb := NewTranscriberFallback(primary, "cloud", FallbackConfig{})
	fb.AddFallback("local", local)

	seg, err := fb.Transcribe(context.Background(), audio.Chunk{}, transcribe.ProfileAccurate)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seg.Text != "open chrome" {
		t.Errorf("text: got %q", seg.Text)
	}

	// Silence on the primary is final: the fallback is not consulted.
	primary.Reset()
	local.Reset()
	_, err = fb.Transcribe(context.Background(), audio.Chunk{}, transcribe.ProfileFast)
	if !errors.Is(err, transcribe.ErrEmpty) {
		t.Fatalf("got %v, want ErrEmpty", err)
	}
	if len(local.TranscribeCalls) != 0 {
		t.Errorf("fallback called %d times on empty transcript", len(local.TranscribeCalls))
	}
	if got := fb.Status(); len(got) != 2 || got[0].Name != "cloud" {
		t.Errorf("status: got %+v", got)
	}
}

func TestSpeakerFallback(t *testing.T) {
	t.Parallel()
	premium := &mock.Speaker{SpeakErr: errors.New("quota exceeded")}
	local := &mock.Speaker{}
	fb := NewSpeakerFallback(premium, "elevenlabs", FallbackConfig{})
	fb.AddFallback("espeak", local)

	if err := fb.Speak(context.Background(), "Goodbye!"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(premium.SpeakCalls) != 1 || len(local.SpeakCalls) != 1 {
		t.Errorf("calls: premium %d, local %d", len(premium.SpeakCalls), len(local.SpeakCalls))
	}

	local.SpeakErr = errors.New("no binary")
	if err := fb.Speak(context.Background(), "x"); !errors.Is(err, ErrAllFailed) {
		t.Errorf("got %v, want ErrAllFailed", err)
	}
}
