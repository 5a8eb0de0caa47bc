package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrQueueClosed is returned when enqueueing after Close.
var ErrQueueClosed = errors.New("queue is closed")

// Player plays one payload and returns once it has finished.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
}

// Observer receives queue events. Methods are called from the drain
// goroutine and must not block.
type Observer interface {
	QueueDepthChanged(n int)
	PlaybackFailed()
}

// PlaybackQueue is a FIFO of audio payloads feeding a single Player.
// Enqueue never blocks; at most one payload is in flight at any time.
type PlaybackQueue struct {
	player Player

	// onError is told about every failed payload; the queue keeps going.
	onError  func(error)
	observer Observer

	mu       sync.Mutex
	items    [][]byte
	draining bool
	closed   bool
	idle     *sync.Cond

	ctx    context.Context
	cancel context.CancelFunc
	stats  Stats
}

// Stats tracks queue counters.
type Stats struct {
	Enqueued int64
	Played   int64
	Failed   int64
	Dropped  int64 // discarded by Clear
	Peak     int
}

// Option configures a PlaybackQueue.
type Option func(*PlaybackQueue)

// WithErrorHandler sets the callback for failed payloads.
func WithErrorHandler(fn func(error)) Option {
	return func(q *PlaybackQueue) { q.onError = fn }
}

// WithObserver attaches queue metrics.
func WithObserver(o Observer) Option {
	return func(q *PlaybackQueue) { q.observer = o }
}

// New creates an idle queue in front of player.
func New(player Player, opts ...Option) *PlaybackQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &PlaybackQueue{
		player: player,
		ctx:    ctx,
		cancel: cancel,
	}
	q.idle = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends pcm and starts draining if nothing is playing. Calling it
// while a drain is underway only appends.
func (q *PlaybackQueue) Enqueue(pcm []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, pcm)
	q.stats.Enqueued++
	if len(q.items) > q.stats.Peak {
		q.stats.Peak = len(q.items)
	}
	q.reportDepthLocked()

	if !q.draining {
		q.draining = true
		go q.drain()
	}
	return nil
}

func (q *PlaybackQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.closed {
			q.draining = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		pcm := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.reportDepthLocked()
		q.mu.Unlock()

		err := q.player.Play(q.ctx, pcm)

		q.mu.Lock()
		if err != nil {
			q.stats.Failed++
		} else {
			q.stats.Played++
		}
		q.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Failed to play narration", "bytes", len(pcm), "err", err)
			if q.observer != nil {
				q.observer.PlaybackFailed()
			}
			if q.onError != nil {
				q.onError(err)
			}
		}
	}
}

// Clear drops every pending payload. A payload already playing finishes;
// the drain loop then finds the queue empty and exits, so a later Enqueue
// can never start a second concurrent drain.
func (q *PlaybackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.Dropped += int64(len(q.items))
	q.items = nil
	q.reportDepthLocked()
}

// Len returns the number of payloads waiting to play.
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Draining reports whether a payload is playing or about to.
func (q *PlaybackQueue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Wait blocks until the queue is empty and nothing is playing.
func (q *PlaybackQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.draining {
		q.idle.Wait()
	}
}

// Stats returns a snapshot of the queue counters.
func (q *PlaybackQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close interrupts the current payload, drops the rest and waits for the
// drain goroutine to exit.
func (q *PlaybackQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	q.cancel()
	q.Wait()
	return nil
}

func (q *PlaybackQueue) reportDepthLocked() {
	if q.observer != nil {
		q.observer.QueueDepthChanged(len(q.items))
	}
}
