package engines

import (
	"context"
	"errors"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/cache"
	"github.com/dgnsrekt/repeat/internal/tts"
)

// Cached wraps an engine with a disk cache that survives restarts, so a
// repeated workout never hits the synthesizer twice for the same line.
type Cached struct {
	engine  tts.Engine
	disk    *cache.DiskCache
	variant string
}

// NewCached wraps engine. Variant distinguishes settings that change the
// audio without changing EngineInfo, like voice or speed.
func NewCached(engine tts.Engine, disk *cache.DiskCache, variant string) *Cached {
	return &Cached{engine: engine, disk: disk, variant: variant}
}

func (c *Cached) key(text string) string {
	info := c.engine.Info()
	return info.Name + ":" + strconv.Itoa(info.SampleRate) + ":" + c.variant + ":" + text
}

// Synthesize returns the stored audio when present, otherwise synthesizes
// and stores it. Store failures are logged and otherwise ignored.
func (c *Cached) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := c.key(text)
	if pcm, ok := c.disk.Get(key); ok {
		return pcm, nil
	}
	pcm, err := c.engine.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.disk.Put(key, pcm); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
		log.Warn("disk cache store failed", "error", err)
	}
	return pcm, nil
}

// Stats reports the disk cache counters.
func (c *Cached) Stats() cache.Stats { return c.disk.Stats() }

func (c *Cached) Info() tts.EngineInfo { return c.engine.Info() }

func (c *Cached) Validate() error { return c.engine.Validate() }

// Close closes the engine and flushes the disk index.
func (c *Cached) Close() error {
	return errors.Join(c.engine.Close(), c.disk.Close())
}

var _ tts.Engine = (*Cached)(nil)
