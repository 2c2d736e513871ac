package whisper_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrWong99/friday/pkg/audio"
	"github.com/MrWong99/friday/pkg/provider/transcribe"
	"github.com/MrWong99/friday/pkg/provider/transcribe/whisper"
)

func speechChunk() audio.Chunk {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = 3000
	}
	return audio.Chunk{PCM: audio.Int16ToPCM(samples), SampleRate: 16000, Channels: 1}
}

type inferenceServer struct {
	mu       sync.Mutex
	fields   []map[string]string
	response string
	status   int
}

func (s *inferenceServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path: got %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data[:4]) != "RIFF" {
				t.Errorf("uploaded file is not a WAV")
			}
		}
		got := map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		s.mu.Lock()
		s.fields = append(s.fields, got)
		status := s.status
		s.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, s.response)
	}
}

func TestServer_Transcribe(t *testing.T) {
	t.Parallel()
	srv := &inferenceServer{response: `{"text":"  friday open chrome \n"}`}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	s, err := whisper.NewServer(ts.URL, whisper.WithServerLanguage("en"))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	seg, err := s.Transcribe(context.Background(), speechChunk(), transcribe.ProfileFast)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seg.Text != "friday open chrome" {
		t.Errorf("text: got %q, want %q", seg.Text, "friday open chrome")
	}
	if seg.Profile != transcribe.ProfileFast {
		t.Errorf("profile: got %v, want fast", seg.Profile)
	}
	if srv.fields[0]["language"] != "en" {
		t.Errorf("language field: got %q, want en", srv.fields[0]["language"])
	}
	if srv.fields[0]["temperature"] != "0.0" {
		t.Errorf("fast profile should request greedy decoding, fields: %v", srv.fields[0])
	}
}

func TestServer_BlankAudioIsEmpty(t *testing.T) {
	t.Parallel()
	srv := &inferenceServer{response: `{"text":" [BLANK_AUDIO]"}`}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	s, _ := whisper.NewServer(ts.URL)
	_, err := s.Transcribe(context.Background(), speechChunk(), transcribe.ProfileAccurate)
	if !errors.Is(err, transcribe.ErrEmpty) {
		t.Errorf("got %v, want ErrEmpty", err)
	}
}

func TestServer_HTTPError(t *testing.T) {
	t.Parallel()
	srv := &inferenceServer{status: http.StatusInternalServerError}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	s, _ := whisper.NewServer(ts.URL)
	_, err := s.Transcribe(context.Background(), speechChunk(), transcribe.ProfileAccurate)
	if err == nil || errors.Is(err, transcribe.ErrEmpty) {
		t.Errorf("got %v, want a backend error", err)
	}
}

func TestServer_AccurateURL(t *testing.T) {
	t.Parallel()
	fast := &inferenceServer{response: `{"text":"fast"}`}
	accurate := &inferenceServer{response: `{"text":"accurate"}`}
	tsFast := httptest.NewServer(fast.handler(t))
	defer tsFast.Close()
	tsAccurate := httptest.NewServer(accurate.handler(t))
	defer tsAccurate.Close()

	s, _ := whisper.NewServer(tsFast.URL, whisper.WithAccurateURL(tsAccurate.URL))
	seg, err := s.Transcribe(context.Background(), speechChunk(), transcribe.ProfileAccurate)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seg.Text != "accurate" {
		t.Errorf("got %q, want accurate", seg.Text)
	}
}

func TestNewServer_EmptyURL(t *testing.T) {
	t.Parallel()
	if _, err := whisper.NewServer(""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNewNative_EmptyPath(t *testing.T) {
	t.Parallel()
	if _, err := whisper.NewNative("", ""); err == nil {
		t.Fatal("expected error for empty model path")
	}
}
