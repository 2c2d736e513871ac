package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/friday/pkg/audio"
	pa "github.com/gordonklaus/portaudio"
)

// Player writes mono 16-bit PCM to the default output device. Calls to Play
// are serialised so that replies never overlap.
type Player struct {
	mu sync.Mutex
}

// NewPlayer returns a Player.
func NewPlayer() *Player { return &Player{} }

// Play blocks until pcm has been written to the device or ctx is cancelled.
func (p *Player) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) < 2 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := acquire(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer release()

	buf := make([]int16, sampleRate/50) // 20ms blocks
	stream, err := pa.OpenDefaultStream(0, 1, float64(sampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("portaudio: open output: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output: %w", err)
	}
	defer stream.Stop()

	samples := audio.PCMToInt16(pcm)
	for off := 0; off < len(samples); off += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buf, samples[off:])
		clear(buf[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write: %w", err)
		}
	}
	return nil
}
