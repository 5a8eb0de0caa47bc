package engines

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/repeat/internal/tts"
	"golang.org/x/time/rate"
)

const (
	gttsMaxText = 5000
	maxMP3Size  = 50 * 1024 * 1024
	maxPCMSize  = 20 * 1024 * 1024
)

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Language code (e.g., "en", "es", "fr") - defaults to "en"
	Language string

	// Slow speech (--slow flag)
	Slow bool

	// Output sample rate, defaults to 44100
	SampleRate int

	// Speed multiplier applied with ffmpeg's atempo filter
	Speed float64

	// Rate limit requests per minute to avoid being blocked (defaults to 50)
	RequestsPerMinute int

	// Binaries default to "gtts-cli" and "ffmpeg" on PATH.
	GTTSBinary   string
	FFmpegBinary string

	// Timeouts for the network fetch and the conversion.
	FetchTimeout   time.Duration
	ConvertTimeout time.Duration
}

// GTTSEngine synthesizes with Google Translate TTS. gtts-cli writes MP3 to
// stdout, which ffmpeg converts to raw PCM.
type GTTSEngine struct {
	config      GTTSConfig
	rateLimiter *rate.Limiter
}

// NewGTTSEngine creates a new gTTS TTS engine.
func NewGTTSEngine(config GTTSConfig) (*GTTSEngine, error) {
	if config.Language == "" {
		config.Language = "en"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 44100
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}
	if config.Speed < 0.5 || config.Speed > 2.0 {
		return nil, fmt.Errorf("gtts speed must be between 0.5 and 2.0, got %.2f", config.Speed)
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 50
	}
	if config.GTTSBinary == "" {
		config.GTTSBinary = "gtts-cli"
	}
	if config.FFmpegBinary == "" {
		config.FFmpegBinary = "ffmpeg"
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = 30 * time.Second
	}
	if config.ConvertTimeout == 0 {
		config.ConvertTimeout = 15 * time.Second
	}

	return &GTTSEngine{
		config:      config,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}, nil
}

// Synthesize converts text to raw PCM: text → gtts-cli → MP3 → ffmpeg → PCM.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > gttsMaxText {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), gttsMaxText)
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	mp3, err := runCommand(ctx, e.config.FetchTimeout, strings.NewReader(""), e.config.GTTSBinary, e.gttsArgs(text)...)
	if err != nil {
		return nil, fmt.Errorf("MP3 generation failed: %w", err)
	}
	if len(mp3) > maxMP3Size {
		return nil, fmt.Errorf("gtts-cli MP3 output too large: %d bytes (max %d)", len(mp3), maxMP3Size)
	}

	pcm, err := runCommand(ctx, e.config.ConvertTimeout, bytes.NewReader(mp3), e.config.FFmpegBinary, e.ffmpegArgs()...)
	if err != nil {
		return nil, fmt.Errorf("MP3 to PCM conversion failed: %w", err)
	}
	if len(pcm) > maxPCMSize {
		return nil, fmt.Errorf("ffmpeg PCM output too large: %d bytes (max %d)", len(pcm), maxPCMSize)
	}
	return pcm, nil
}

func (e *GTTSEngine) gttsArgs(text string) []string {
	args := []string{text, "-l", e.config.Language}
	if e.config.Slow {
		args = append(args, "--slow")
	}
	return append(args, "-o", "-")
}

func (e *GTTSEngine) ffmpegArgs() []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(e.config.SampleRate),
		"-ac", "1",
	}
	if e.config.Speed != 1.0 {
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", e.config.Speed))
	}
	return append(args, "pipe:1")
}

// Info returns engine capabilities and configuration.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EngineGTTS),
		SampleRate:  e.config.SampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: gttsMaxText,
		IsOnline:    true,
	}
}

// Validate checks that gtts-cli and ffmpeg are on PATH.
func (e *GTTSEngine) Validate() error {
	if _, err := exec.LookPath(e.config.GTTSBinary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w\n\nInstall with: pip install gtts", e.config.GTTSBinary, err)
	}
	if _, err := exec.LookPath(e.config.FFmpegBinary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w\n\nInstall ffmpeg for audio conversion", e.config.FFmpegBinary, err)
	}
	return nil
}

// Close is a no-op; every synthesis runs in its own processes.
func (e *GTTSEngine) Close() error { return nil }

var _ tts.Engine = (*GTTSEngine)(nil)
