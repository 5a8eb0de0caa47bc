package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/repeat/internal/tts"
)

const (
	piperMaxText  = 5000
	piperMaxAudio = 10 * 1024 * 1024
)

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary defaults to "piper" on PATH.
	Binary string

	// Model file path (required)
	ModelPath string

	// Config file path (optional, defaults to model path with .json extension)
	ConfigPath string

	// Speaker ID for multi-speaker models (optional)
	Speaker string

	// Sample rate of the model's raw output, defaults to 22050
	SampleRate int

	// Speed multiplier, 1.0 is the model's natural pace
	Speed float64

	// Timeout per synthesis, defaults to 10s
	Timeout time.Duration
}

// PiperEngine synthesizes with a fresh Piper process per line, reading the
// text from stdin and returning raw 16-bit mono PCM.
type PiperEngine struct {
	config PiperConfig
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = strings.TrimSuffix(config.ModelPath, filepath.Ext(config.ModelPath)) + ".onnx.json"
		if _, err := os.Stat(config.ConfigPath); err != nil {
			config.ConfigPath = config.ModelPath + ".json"
		}
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Speed == 0 {
		config.Speed = 1.0
	}
	if config.Speed < 0.1 || config.Speed > 3.0 {
		return nil, fmt.Errorf("piper speed must be between 0.1 and 3.0, got %.2f", config.Speed)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &PiperEngine{config: config}, nil
}

// Synthesize converts text to raw PCM using Piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > piperMaxText {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), piperMaxText)
	}

	// Piper's length scale is the inverse of speed.
	args := []string{
		"--model", e.config.ModelPath,
		"--config", e.config.ConfigPath,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/e.config.Speed),
	}
	if e.config.Speaker != "" {
		args = append(args, "--speaker", e.config.Speaker)
	}

	audio, err := runCommand(ctx, e.config.Timeout, strings.NewReader(text), e.config.Binary, args...)
	if err != nil {
		return nil, err
	}
	if len(audio) > piperMaxAudio {
		return nil, fmt.Errorf("piper output too large: %d bytes (max %d)", len(audio), piperMaxAudio)
	}
	return audio, nil
}

// Info returns engine capabilities and configuration.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        string(tts.EnginePiper),
		SampleRate:  e.config.SampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: piperMaxText,
	}
}

// Validate checks the binary and model are usable.
func (e *PiperEngine) Validate() error {
	if _, err := exec.LookPath(e.config.Binary); err != nil {
		return fmt.Errorf("%s not found in PATH: %w\n\nInstall Piper from https://github.com/rhasspy/piper", e.config.Binary, err)
	}
	if _, err := os.Stat(e.config.ModelPath); err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}
	return nil
}

// Close is a no-op; every synthesis runs in its own process.
func (e *PiperEngine) Close() error { return nil }

var _ tts.Engine = (*PiperEngine)(nil)
