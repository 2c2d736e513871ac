package audio_test

import (
	"testing"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
)

func TestDownmixToMono(t *testing.T) {
	t.Parallel()
	stereo := audio.Int16ToPCM([]int16{100, 300, -200, -400, 32767, 32767})
	got := audio.PCMToInt16(audio.DownmixToMono(stereo, 2))
	want := []int16{200, -300, 32767}
	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	t.Parallel()
	in := audio.Int16ToPCM(make([]int16, 480))
	out := audio.ResampleMono16(in, 48000, 16000)
	if got, want := len(out)/2, 160; got != want {
		t.Errorf("samples: got %d, want %d", got, want)
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	t.Parallel()
	in := audio.Int16ToPCM([]int16{1, 2, 3})
	out := audio.ResampleMono16(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Error("expected input to be returned unchanged")
	}
}

func TestToFormat_StereoToMono16k(t *testing.T) {
	t.Parallel()
	f := audio.Frame{
		Data:       audio.Int16ToPCM(make([]int16, 960)), // 10ms stereo at 48kHz
		SampleRate: 48000,
		Channels:   2,
	}
	got := audio.ToFormat(f, audio.Format{SampleRate: 16000, Channels: 1})
	if got.SampleRate != 16000 || got.Channels != 1 {
		t.Fatalf("format: got %d/%d, want 16000/1", got.SampleRate, got.Channels)
	}
	if got.Duration() != 10*time.Millisecond {
		t.Errorf("duration: got %v, want 10ms", got.Duration())
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()
	if got := audio.RMS(nil); got != 0 {
		t.Errorf("RMS(nil): got %v, want 0", got)
	}
	pcm := audio.Int16ToPCM([]int16{1000, -1000, 1000, -1000})
	if got := audio.RMS(pcm); got != 1000 {
		t.Errorf("RMS: got %v, want 1000", got)
	}
}

func TestPCMToFloat32Mono(t *testing.T) {
	t.Parallel()
	got := audio.PCMToFloat32Mono(audio.Int16ToPCM([]int16{16384, -16384}), 1)
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("got %v, want [0.5 -0.5]", got)
	}
}
