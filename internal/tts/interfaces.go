package tts

import (
	"context"
	"fmt"
	"strings"
)

// Synthesizer turns narration text into raw PCM. Calls may run
// concurrently and complete in any order.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Engine is a Synthesizer backed by a concrete TTS implementation.
type Engine interface {
	Synthesizer

	// Info returns the engine's output format and limits.
	Info() EngineInfo

	// Validate checks the engine's binaries and models are usable.
	Validate() error

	Close() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string
	SampleRate  int // Hz
	Channels    int
	BitDepth    int
	MaxTextSize int // characters
	IsOnline    bool
}

// EngineType names a supported engine.
type EngineType string

const (
	EnginePiper EngineType = "piper"
	EngineGTTS  EngineType = "gtts"
	EngineMock  EngineType = "mock"
)

// ParseEngine normalizes an engine name from flags or config.
func ParseEngine(name string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", ErrNoEngineConfigured
	case "piper":
		return EnginePiper, nil
	case "gtts", "google":
		return EngineGTTS, nil
	case "mock", "silent":
		return EngineMock, nil
	default:
		return "", fmt.Errorf("%w: %s\n\nSupported engines:\n  - piper (offline TTS)\n  - gtts (Google TTS)\n  - mock (silent, for testing)", ErrInvalidEngine, name)
	}
}
