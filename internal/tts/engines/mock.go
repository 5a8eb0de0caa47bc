package engines

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/repeat/internal/tts"
)

// MockEngine returns silent PCM sized to the text's speaking time. It needs
// no binaries, so it backs tests and --engine mock.
type MockEngine struct {
	// SampleRate defaults to 22050.
	SampleRate int

	// WordsPerMinute sets the silence length, defaults to 150.
	WordsPerMinute int

	// Delay simulates synthesis latency.
	Delay time.Duration

	// Fail, when set, is consulted for every call.
	Fail func(text string) error

	calls atomic.Int64
}

// Synthesize returns silence long enough to "say" text.
func (e *MockEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	e.calls.Add(1)
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.Fail != nil {
		if err := e.Fail(text); err != nil {
			return nil, err
		}
	}

	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	samples := words * 60 * e.sampleRate() / e.wpm()
	return make([]byte, samples*2), nil
}

// Calls reports how many times Synthesize ran.
func (e *MockEngine) Calls() int { return int(e.calls.Load()) }

func (e *MockEngine) sampleRate() int {
	if e.SampleRate == 0 {
		return 22050
	}
	return e.SampleRate
}

func (e *MockEngine) wpm() int {
	if e.WordsPerMinute <= 0 {
		return 150
	}
	return e.WordsPerMinute
}

// Info returns engine capabilities and configuration.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineMock),
		SampleRate:  e.sampleRate(),
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: 5000,
	}
}

func (e *MockEngine) Validate() error { return nil }

func (e *MockEngine) Close() error { return nil }

var _ tts.Engine = (*MockEngine)(nil)
