package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/repeat/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSynth returns the text itself as audio and counts calls per text.
type fakeSynth struct {
	mu    sync.Mutex
	calls map[string]int

	fail  map[string]bool
	block chan struct{} // when set, every call waits on it
	delay time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{calls: map[string]int{}, fail: map[string]bool{}}
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[text]++
	fail := f.fail[text]
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if fail {
		return nil, errors.New("engine exploded")
	}
	return []byte(text), nil
}

func (f *fakeSynth) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeSynth) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// fakeSink records enqueued payloads.
type fakeSink struct {
	mu      sync.Mutex
	items   []string
	cleared int
}

func (s *fakeSink) Enqueue(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, string(pcm))
	return nil
}

func (s *fakeSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.cleared++
}

func (s *fakeSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items...)
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []string
}

func (r *noticeRecorder) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *noticeRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

func newTestNarrator(synth Synthesizer, opts ...NarratorOption) (*Narrator, *cache.SpeechCache, *fakeSink) {
	sc := cache.NewSpeechCache()
	sink := &fakeSink{}
	n := NewNarrator(synth, sc, sink, opts...)
	return n, sc, sink
}

func TestPregenerate_PopulatesCache(t *testing.T) {
	synth := newFakeSynth()
	n, sc, _ := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	lines := []string{"Hello.", "Rest.", "Up next is Plank."}
	res := n.Pregenerate(context.Background(), lines)

	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 3, res.Generated)
	assert.Zero(t, res.Failed)
	for _, l := range lines {
		assert.True(t, sc.Contains(l), l)
	}
}

func TestPregenerate_Idempotent(t *testing.T) {
	synth := newFakeSynth()
	n, _, _ := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	lines := []string{"a", "b", "c", "d"}
	n.Pregenerate(context.Background(), lines)
	res := n.Pregenerate(context.Background(), lines)

	assert.Equal(t, 4, res.Skipped)
	assert.Zero(t, res.Generated)
	for _, l := range lines {
		assert.Equal(t, 1, synth.callsFor(l), l)
	}
	assert.Equal(t, 4, synth.totalCalls())
}

func TestPregenerate_FailuresAreSkipped(t *testing.T) {
	synth := newFakeSynth()
	synth.fail["bad"] = true
	notices := &noticeRecorder{}
	n, sc, _ := newTestNarrator(synth, WithNotify(notices.record))
	defer n.Close() //nolint:errcheck

	res := n.Pregenerate(context.Background(), []string{"good", "bad", "fine"})

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Generated)
	assert.True(t, sc.Contains("good"))
	assert.True(t, sc.Contains("fine"))
	assert.False(t, sc.Contains("bad"))
	assert.Empty(t, notices.all(), "pre-generation failures are silent")
}

func TestPregenerate_BoundedConcurrency(t *testing.T) {
	synth := newFakeSynth()
	synth.delay = 5 * time.Millisecond
	n, _, _ := newTestNarrator(synth, WithConcurrency(2))
	defer n.Close() //nolint:errcheck

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	n.Pregenerate(context.Background(), lines)

	assert.LessOrEqual(t, synth.maxActive.Load(), int32(2))
	assert.Equal(t, 10, synth.totalCalls())
}

func TestSpeak_CachedLineQueuesImmediately(t *testing.T) {
	synth := newFakeSynth()
	n, sc, sink := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	require.NoError(t, sc.Put("Rest.", []byte("rest-audio")))
	n.Speak("Rest.")

	assert.Equal(t, []string{"rest-audio"}, sink.all())
	assert.Zero(t, synth.totalCalls())
}

func TestSpeak_MissFallsBackToSynthesis(t *testing.T) {
	synth := newFakeSynth()
	n, sc, sink := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	n.Speak("Let's go. Plank.")

	assert.Eventually(t, func() bool {
		return len(sink.all()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, sc.Contains("Let's go. Plank."))
}

func TestSpeak_FallbackFailureNotifies(t *testing.T) {
	synth := newFakeSynth()
	synth.fail["oops"] = true
	notices := &noticeRecorder{}
	n, _, sink := newTestNarrator(synth, WithNotify(notices.record))
	defer n.Close() //nolint:errcheck

	n.Speak("oops")

	assert.Eventually(t, func() bool {
		return len(notices.all()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, NoticeUnavailable, notices.all()[0])
	assert.Empty(t, sink.all())
	assert.Equal(t, 1, synth.callsFor("oops"), "engine failures are not retried")
}

// flakySynth times out on the first call for each text.
type flakySynth struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *flakySynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[text]++
	if f.calls[text] == 1 {
		return nil, fmt.Errorf("piper: %w", context.DeadlineExceeded)
	}
	return []byte(text), nil
}

func TestSpeak_RetriesTimeoutOnce(t *testing.T) {
	synth := &flakySynth{calls: map[string]int{}}
	notices := &noticeRecorder{}
	n, _, sink := newTestNarrator(synth, WithNotify(notices.record))
	defer n.Close() //nolint:errcheck

	n.Speak("Up next is Rows.")

	assert.Eventually(t, func() bool {
		return len(sink.all()) == 1
	}, time.Second, 5*time.Millisecond)
	synth.mu.Lock()
	assert.Equal(t, 2, synth.calls["Up next is Rows."])
	synth.mu.Unlock()
	assert.Empty(t, notices.all())
}

func TestSpeak_EmptyTextIgnored(t *testing.T) {
	synth := newFakeSynth()
	n, _, sink := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	n.Speak("")
	assert.Empty(t, sink.all())
	assert.Zero(t, synth.totalCalls())
}

func TestReset_DiscardsStaleFallback(t *testing.T) {
	synth := newFakeSynth()
	synth.block = make(chan struct{})
	n, sc, sink := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	require.NoError(t, sc.Put("cached", []byte("x")))
	n.Speak("slow line")
	assert.Eventually(t, func() bool { return synth.callsFor("slow line") == 1 }, time.Second, time.Millisecond)

	n.Reset()
	assert.Zero(t, sc.Len())
	assert.Equal(t, 1, sink.cleared)

	close(synth.block)
	n.wg.Wait()

	assert.Empty(t, sink.all())
	assert.False(t, sc.Contains("slow line"))
}

// holdSynth blocks calls made while hold is set until their context is
// canceled, then lingers before returning, like a subprocess winding down.
type holdSynth struct {
	hold    atomic.Bool
	linger  time.Duration
	started atomic.Int32
}

func (h *holdSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !h.hold.Load() {
		return []byte(text), nil
	}
	h.started.Add(1)
	<-ctx.Done()
	time.Sleep(h.linger)
	return nil, ctx.Err()
}

func TestReset_NewPassDoesNotJoinCanceledSynthesis(t *testing.T) {
	synth := &holdSynth{linger: 80 * time.Millisecond}
	synth.hold.Store(true)
	n, sc, _ := newTestNarrator(synth)
	defer n.Close() //nolint:errcheck

	lines := []string{"Hello.", "Rest.", "Up next is Plank."}
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan PregenerateResult, 1)
	go func() { first <- n.Pregenerate(ctx, lines) }()
	assert.Eventually(t, func() bool { return synth.started.Load() == 3 }, time.Second, time.Millisecond)

	cancel()
	n.Reset()
	synth.hold.Store(false)

	res := n.Pregenerate(context.Background(), lines)
	assert.Equal(t, 3, res.Generated)
	assert.Zero(t, res.Failed)

	old := <-first
	assert.Equal(t, 3, old.Failed)
	for _, l := range lines {
		assert.True(t, sc.Contains(l), l)
	}
}

func TestSynthesize_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"timeout", context.DeadlineExceeded, ErrorCodeEngineTimeout},
		{"canceled", context.Canceled, ErrorCodeCanceled},
		{"too long", ErrTextTooLong, ErrorCodeInvalidInput},
		{"other", errors.New("boom"), ErrorCodeEngineFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("text", tt.err)
			var te *TTSError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.code, te.Code)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, "text", te.Context["text"])
		})
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    EngineType
		wantErr error
	}{
		{"piper", EnginePiper, nil},
		{"GTTS", EngineGTTS, nil},
		{"google", EngineGTTS, nil},
		{" mock ", EngineMock, nil},
		{"", "", ErrNoEngineConfigured},
		{"espeak", "", ErrInvalidEngine},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEngine(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
