package audio

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Queue is a bounded hand-off between the capture goroutine (producer) and
// the pipeline consumer. Offer never blocks: when the queue is full the frame
// is dropped and counted so that capture timing is never coupled to
// transcription latency.
//
// Queue is safe for concurrent use.
type Queue struct {
	ch chan Frame

	mu     sync.Mutex
	closed bool

	offered atomic.Uint64
	dropped atomic.Uint64
}

// NewQueue returns a queue holding at most capacity frames. A capacity below
// one is raised to one.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Frame, capacity)}
}

// Offer enqueues f without blocking. It reports false when the frame was
// dropped because the queue is full or closed.
func (q *Queue) Offer(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.offered.Add(1)
	select {
	case q.ch <- f:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Run copies frames from src into the queue until src is closed or ctx is
// cancelled, then closes the queue. It is the producer loop.
func (q *Queue) Run(ctx context.Context, src <-chan Frame) {
	defer q.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-src:
			if !ok {
				return
			}
			q.Offer(f)
		}
	}
}

// Close marks the queue closed. Frames already buffered remain readable.
// Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len returns the number of buffered frames.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns how many frames were discarded because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Offered returns how many frames were offered while the queue was open.
func (q *Queue) Offered() uint64 { return q.offered.Load() }

// ChunkerConfig controls when a [Chunker] hands a chunk to the consumer.
type ChunkerConfig struct {
	// MaxBytes is the chunk-size threshold. A chunk is emitted as soon as at
	// least this many PCM bytes have accumulated. Zero disables the threshold.
	MaxBytes int

	// Interval is the drain period. When it elapses the accumulated frames
	// are emitted even if MaxBytes has not been reached; with nothing
	// accumulated an empty chunk is returned so the consumer can run its
	// periodic work. Defaults to 500ms.
	Interval time.Duration
}

// Chunker drains a [Queue] into chunks. It is used by exactly one consumer
// goroutine and is not safe for concurrent use.
type Chunker struct {
	q   *Queue
	cfg ChunkerConfig
}

// NewChunker returns a Chunker reading from q.
func NewChunker(q *Queue, cfg ChunkerConfig) *Chunker {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Chunker{q: q, cfg: cfg}
}

// Next blocks until the byte threshold is reached or the drain interval
// elapses and returns the accumulated chunk, which may be empty. It returns
// io.EOF once the queue is closed and fully drained, and ctx.Err() when ctx
// is cancelled.
func (c *Chunker) Next(ctx context.Context) (Chunk, error) {
	timer := time.NewTimer(c.cfg.Interval)
	defer timer.Stop()

	var chunk Chunk
	for {
		select {
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		case f, ok := <-c.q.ch:
			if !ok {
				if chunk.Empty() {
					return Chunk{}, io.EOF
				}
				return chunk, nil
			}
			chunk = chunk.Append(Chunk{PCM: f.Data, SampleRate: f.SampleRate, Channels: f.Channels, Start: f.Timestamp})
			if c.cfg.MaxBytes > 0 && len(chunk.PCM) >= c.cfg.MaxBytes {
				return chunk, nil
			}
		case <-timer.C:
			return chunk, nil
		}
	}
}
