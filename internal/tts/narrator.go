package tts

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// NoticeUnavailable is shown to the user when narration audio can't be
// produced or played.
const NoticeUnavailable = "Audio guidance is currently unavailable."

// DefaultConcurrency bounds parallel synthesis during pre-generation.
const DefaultConcurrency = 4

// Sink accepts audio for ordered playback.
type Sink interface {
	Enqueue(pcm []byte) error
	Clear()
}

// Observer receives narration metrics. Implementations must be safe for
// concurrent use.
type Observer interface {
	SynthesisFinished(d time.Duration, err error)
	CacheLookup(hit bool)
}

// Narrator turns narration text into queued audio. Lines found in the
// speech cache are queued immediately; misses are synthesized on demand and
// queued when ready, so a miss can be overtaken by a later cached line.
type Narrator struct {
	synth Synthesizer
	cache *cache.SpeechCache
	sink  Sink

	concurrency int
	notify      func(string)
	observer    Observer

	// Identical in-flight requests from the same epoch share one synthesis
	// call.
	group singleflight.Group

	// epoch changes on Reset; work started under an older epoch is
	// discarded instead of touching the new session's cache or queue.
	epoch atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NarratorOption configures a Narrator.
type NarratorOption func(*Narrator)

// WithConcurrency bounds parallel synthesis during Pregenerate.
func WithConcurrency(limit int) NarratorOption {
	return func(n *Narrator) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// WithNotify sets the callback for user-visible notices.
func WithNotify(fn func(string)) NarratorOption {
	return func(n *Narrator) { n.notify = fn }
}

// WithObserver attaches narration metrics.
func WithObserver(o Observer) NarratorOption {
	return func(n *Narrator) { n.observer = o }
}

// NewNarrator wires a synthesizer, a per-session cache and a playback sink.
func NewNarrator(synth Synthesizer, c *cache.SpeechCache, sink Sink, opts ...NarratorOption) *Narrator {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Narrator{
		synth:       synth,
		cache:       c,
		sink:        sink,
		concurrency: DefaultConcurrency,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Speak queues text for playback. It never blocks on synthesis.
func (n *Narrator) Speak(text string) {
	if text == "" {
		return
	}

	if audio, ok := n.cache.Get(text); ok {
		n.observeLookup(true)
		n.enqueue(text, audio)
		return
	}
	n.observeLookup(false)

	log.Warn("Narration was not pre-generated, synthesizing on demand", "text", text)
	epoch := n.epoch.Load()
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		audio, err := n.synthesize(n.ctx, epoch, text)
		var te *TTSError
		if errors.As(err, &te) && te.IsRetryable() && n.epoch.Load() == epoch {
			log.Debug("Retrying on-demand narration", "text", text, "err", err)
			audio, err = n.synthesize(n.ctx, epoch, text)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("On-demand narration failed", "text", text, "err", err)
			n.notifyUser(NoticeUnavailable)
			return
		}
		if n.epoch.Load() != epoch {
			return
		}
		_ = n.cache.Put(text, audio)
		n.enqueue(text, audio)
	}()
}

// Pregenerate synthesizes every uncached line, up to the configured
// concurrency, and returns once all requests have settled. Failures are
// logged and skipped; the caller is told how many lines are now cached.
func (n *Narrator) Pregenerate(ctx context.Context, lines []string) PregenerateResult {
	start := time.Now()
	epoch := n.epoch.Load()

	var (
		res    PregenerateResult
		failed atomic.Int64
		done   atomic.Int64
	)
	g := new(errgroup.Group)
	g.SetLimit(n.concurrency)

	for _, line := range lines {
		if line == "" {
			continue
		}
		res.Requested++
		if n.cache.Contains(line) {
			res.Skipped++
			continue
		}
		g.Go(func() error {
			audio, err := n.synthesize(ctx, epoch, line)
			if err != nil {
				failed.Add(1)
				log.Warn("Failed to pre-generate narration", "text", line, "err", err)
				return nil
			}
			if n.epoch.Load() == epoch {
				_ = n.cache.Put(line, audio)
			}
			done.Add(1)
			return nil
		})
	}
	// Every task returns nil so Wait is an all-settled barrier.
	_ = g.Wait()

	res.Generated = int(done.Load())
	res.Failed = int(failed.Load())
	res.Elapsed = time.Since(start)
	log.Debug("Pre-generated narration",
		"requested", res.Requested,
		"generated", res.Generated,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"elapsed", res.Elapsed)
	return res
}

// PregenerateResult summarizes a pre-generation pass.
type PregenerateResult struct {
	Requested int
	Generated int
	Skipped   int // already cached
	Failed    int
	Elapsed   time.Duration
}

// Reset forgets the session: cached audio, queued audio and any on-demand
// synthesis still in flight.
func (n *Narrator) Reset() {
	n.epoch.Add(1)
	id, age := n.cache.SessionInfo()
	log.Debug("Discarding speech cache session", "id", id, "age", age.Round(time.Second))
	_ = n.cache.Clear()
	n.sink.Clear()
}

// CacheStats reports the speech cache counters.
func (n *Narrator) CacheStats() cache.Stats {
	return n.cache.Stats()
}

// Close cancels on-demand synthesis and waits for it to stop.
func (n *Narrator) Close() error {
	n.cancel()
	n.wg.Wait()
	return nil
}

// synthesize collapses concurrent requests for text. The key carries the
// epoch so a new session never joins a call canceled by the previous one.
func (n *Narrator) synthesize(ctx context.Context, epoch uint64, text string) ([]byte, error) {
	key := strconv.FormatUint(epoch, 10) + "\x00" + text
	v, err, _ := n.group.Do(key, func() (interface{}, error) {
		start := time.Now()
		audio, err := n.synth.Synthesize(ctx, text)
		if n.observer != nil {
			n.observer.SynthesisFinished(time.Since(start), err)
		}
		if err != nil {
			return nil, classify(text, err)
		}
		if len(audio) == 0 {
			return nil, NewTTSError(ErrorCodeEngineFailure, "engine returned no audio", ErrSynthesisFailed).
				WithContext("text", text)
		}
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (n *Narrator) enqueue(text string, audio []byte) {
	if err := n.sink.Enqueue(audio); err != nil {
		log.Error("Could not queue narration", "text", text, "err", err)
		n.notifyUser(NoticeUnavailable)
	}
}

func (n *Narrator) notifyUser(msg string) {
	if n.notify != nil {
		n.notify(msg)
	}
}

func (n *Narrator) observeLookup(hit bool) {
	if n.observer != nil {
		n.observer.CacheLookup(hit)
	}
}
