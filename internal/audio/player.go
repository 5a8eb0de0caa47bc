package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

var (
	// ErrLocked is returned by Play before the first successful Unlock.
	ErrLocked = errors.New("audio output is locked until the first user gesture")

	// ErrClosed is returned by Play after Close.
	ErrClosed = errors.New("player is closed")

	// ErrEmptyAudio is returned when asked to play nothing.
	ErrEmptyAudio = errors.New("audio data is empty")
)

// pollInterval is how often Play checks whether oto has drained the stream.
const pollInterval = 10 * time.Millisecond

// PlayerConfig describes the PCM format produced by the synthesis engine.
type PlayerConfig struct {
	SampleRate int // Hz
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // only 16 is supported
	BufferSize time.Duration
	Volume     float64 // 0.0 to 1.0
}

// DefaultPlayerConfig returns mono 16-bit PCM at 22050 Hz, the format
// piper emits with --output-raw.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 22050,
		Channels:   1,
		BitDepth:   16,
		BufferSize: 100 * time.Millisecond,
		Volume:     1.0,
	}
}

func validateConfig(config PlayerConfig) error {
	switch config.SampleRate {
	case 16000, 22050, 24000, 44100, 48000:
	default:
		return fmt.Errorf("unsupported sample rate %d Hz", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}
	if config.Volume < 0 || config.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}
	return nil
}

// Player is the oto-backed playback primitive. Play blocks until the
// payload has finished playing, so callers serialize narration simply by
// calling it from one goroutine.
type Player struct {
	config PlayerConfig

	// unlocked flips to true exactly once, after the oto context is ready.
	unlockOnce sync.Once
	unlocked   atomic.Bool
	unlockErr  error
	context    *oto.Context

	mu      sync.Mutex
	current *oto.Player
	closed  bool
}

// NewPlayer validates config. No audio device is touched until Unlock.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Player{config: config}, nil
}

// Unlock opens the audio device. Only the first call does any work; later
// calls return the first call's result.
func (p *Player) Unlock() error {
	p.unlockOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   p.config.SampleRate,
			ChannelCount: p.config.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   p.config.BufferSize,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			p.unlockErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		p.context = ctx
		p.unlocked.Store(true)
		log.Debug("Audio unlocked", "sample_rate", p.config.SampleRate, "channels", p.config.Channels)
	})
	return p.unlockErr
}

// Unlocked reports whether Unlock has succeeded.
func (p *Player) Unlocked() bool {
	return p.unlocked.Load()
}

// Play plays pcm to completion or until ctx is done.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}
	if !p.unlocked.Load() {
		return ErrLocked
	}

	// oto reads from the buffer asynchronously; own a copy and keep it
	// reachable until playback ends.
	data := make([]byte, len(pcm))
	copy(data, pcm)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	player := p.context.NewPlayer(bytes.NewReader(data))
	player.SetVolume(p.config.Volume)
	p.current = player
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.current == player {
			p.current = nil
		}
		p.mu.Unlock()
		_ = player.Close()
		runtime.KeepAlive(data)
	}()

	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := player.Err(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// Close stops any playback and rejects further Play calls.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.current != nil {
		p.current.Pause()
	}
	return nil
}
