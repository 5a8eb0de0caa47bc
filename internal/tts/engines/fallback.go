package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/tts"
)

// DefaultMaxFailures is how many primary failures in a row switch a
// Fallback to its secondary engine.
const DefaultMaxFailures = 2

// Fallback synthesizes with a primary engine and switches to a secondary
// one for good once the primary has failed maxFailures times in a row.
type Fallback struct {
	primary     tts.Engine
	secondary   tts.Engine
	maxFailures int

	mu           sync.Mutex
	failures     int
	useSecondary bool
}

// NewFallback pairs two engines. Both must produce PCM in the same format,
// since one player plays whatever either returns.
func NewFallback(primary, secondary tts.Engine, maxFailures int) (*Fallback, error) {
	p, s := primary.Info(), secondary.Info()
	if p.SampleRate != s.SampleRate || p.Channels != s.Channels || p.BitDepth != s.BitDepth {
		return nil, fmt.Errorf("%w: %s produces %d Hz, %s produces %d Hz",
			tts.ErrInvalidEngine, p.Name, p.SampleRate, s.Name, s.SampleRate)
	}
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	return &Fallback{primary: primary, secondary: secondary, maxFailures: maxFailures}, nil
}

func (f *Fallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.UsingSecondary() {
		return f.secondary.Synthesize(ctx, text)
	}

	audio, err := f.primary.Synthesize(ctx, text)
	switch {
	case err == nil:
		f.mu.Lock()
		if f.failures > 0 {
			log.Info("Primary engine recovered", "engine", f.primary.Info().Name, "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return audio, nil

	// Cancellation and bad input say nothing about the engine's health.
	case errors.Is(err, context.Canceled), errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrTextTooLong):
		return nil, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	if failures >= f.maxFailures && !f.useSecondary {
		f.useSecondary = true
		log.Warn("Switching to fallback engine",
			"primary", f.primary.Info().Name, "fallback", f.secondary.Info().Name, "failures", failures)
	}
	switched := f.useSecondary
	f.mu.Unlock()

	log.Warn("Primary engine failed", "engine", f.primary.Info().Name, "attempt", failures, "max", f.maxFailures, "err", err)
	if !switched {
		return nil, err
	}
	audio, ferr := f.secondary.Synthesize(ctx, text)
	if ferr != nil {
		return nil, fmt.Errorf("both engines failed: %w", errors.Join(err, ferr))
	}
	return audio, nil
}

// UsingSecondary reports whether the fallback engine is active.
func (f *Fallback) UsingSecondary() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.useSecondary
}

// Info describes the active engine.
func (f *Fallback) Info() tts.EngineInfo {
	if f.UsingSecondary() {
		return f.secondary.Info()
	}
	return f.primary.Info()
}

// Validate succeeds when either engine is usable. An unusable primary
// switches to the secondary right away.
func (f *Fallback) Validate() error {
	perr := f.primary.Validate()
	if perr == nil {
		return nil
	}
	if serr := f.secondary.Validate(); serr != nil {
		return fmt.Errorf("both engines are unusable: %w", errors.Join(perr, serr))
	}

	f.mu.Lock()
	f.useSecondary = true
	f.mu.Unlock()
	log.Warn("Primary engine unusable, using fallback", "primary", f.primary.Info().Name, "err", perr)
	return nil
}

func (f *Fallback) Close() error {
	return errors.Join(f.primary.Close(), f.secondary.Close())
}

var _ tts.Engine = (*Fallback)(nil)
