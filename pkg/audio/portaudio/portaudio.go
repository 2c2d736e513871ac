// Package portaudio implements [audio.Source] for the local microphone and a
// PCM [Player] for speech playback using the PortAudio C library.
//
// The PortAudio shared library and headers must be available at build time
// (libportaudio2 / portaudio19-dev on Debian-based systems).
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/friday/pkg/audio"
	pa "github.com/gordonklaus/portaudio"
)

const (
	defaultSampleRate = 16000
	defaultFrameMs    = 20
)

// PortAudio keeps a process-wide reference count; Initialize and Terminate
// must be balanced.
var (
	initMu    sync.Mutex
	initCount int
)

func acquire() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		if err := pa.Initialize(); err != nil {
			return err
		}
	}
	initCount++
	return nil
}

func release() {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		return
	}
	initCount--
	if initCount == 0 {
		if err := pa.Terminate(); err != nil {
			slog.Warn("portaudio: terminate failed", "err", err)
		}
	}
}

// Option configures a [Capture].
type Option func(*Capture)

// WithSampleRate sets the capture sample rate in Hz. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(c *Capture) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithFrameMs sets the capture block length in milliseconds. Defaults to 20.
func WithFrameMs(ms int) Option {
	return func(c *Capture) {
		if ms > 0 {
			c.frameMs = ms
		}
	}
}

// WithDevice selects an input device whose name contains name
// (case-insensitive). The default input device is used when empty.
func WithDevice(name string) Option {
	return func(c *Capture) { c.device = name }
}

// Capture reads mono 16-bit PCM from a PortAudio input device.
type Capture struct {
	sampleRate int
	frameMs    int
	device     string

	mu      sync.Mutex
	stream  *pa.Stream
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ audio.Source = (*Capture)(nil)

// New returns an unopened Capture.
func New(opts ...Option) *Capture {
	c := &Capture{sampleRate: defaultSampleRate, frameMs: defaultFrameMs}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open implements [audio.Source]. Every failure to acquire the device wraps
// [audio.ErrDeviceUnavailable].
func (c *Capture) Open(ctx context.Context) (<-chan audio.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, errors.New("portaudio: capture already open")
	}
	if err := acquire(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", audio.ErrDeviceUnavailable, err)
	}

	buf := make([]int16, c.sampleRate*c.frameMs/1000)
	stream, err := c.openStream(buf)
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		release()
		return nil, fmt.Errorf("%w: start stream: %v", audio.ErrDeviceUnavailable, err)
	}

	c.stream = stream
	c.running = true
	c.done = make(chan struct{})
	out := make(chan audio.Frame, 64)

	c.wg.Add(1)
	go c.readLoop(ctx, stream, buf, out, c.done)

	slog.Info("portaudio: capture started", "sample_rate", c.sampleRate, "frame_ms", c.frameMs, "device", c.device)
	return out, nil
}

func (c *Capture) openStream(buf []int16) (*pa.Stream, error) {
	if c.device == "" {
		return pa.OpenDefaultStream(1, 0, float64(c.sampleRate), len(buf), buf)
	}
	devices, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, d := range devices {
		if d.MaxInputChannels < 1 || !strings.Contains(strings.ToLower(d.Name), strings.ToLower(c.device)) {
			continue
		}
		p := pa.LowLatencyParameters(d, nil)
		p.Input.Channels = 1
		p.SampleRate = float64(c.sampleRate)
		p.FramesPerBuffer = len(buf)
		return pa.OpenStream(p, buf)
	}
	return nil, fmt.Errorf("no input device matching %q", c.device)
}

// readLoop copies blocks from the device into out. A full out channel drops
// the block rather than stalling the device read.
func (c *Capture) readLoop(ctx context.Context, stream *pa.Stream, buf []int16, out chan<- audio.Frame, done <-chan struct{}) {
	defer c.wg.Done()
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		default:
		}
		if err := stream.Read(); err != nil {
			// Input overflow is recoverable; anything else ends capture.
			if errors.Is(err, pa.InputOverflowed) {
				continue
			}
			slog.Error("portaudio: read failed", "err", err)
			return
		}
		f := audio.Frame{
			Data:       audio.Int16ToPCM(buf),
			SampleRate: c.sampleRate,
			Channels:   1,
			Timestamp:  time.Now(),
		}
		select {
		case out <- f:
		default:
		}
	}
}

// Close implements [audio.Source].
func (c *Capture) Close() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.done)
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	c.wg.Wait()
	err := stream.Stop()
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	release()
	if err != nil {
		return fmt.Errorf("portaudio: close capture: %w", err)
	}
	return nil
}
