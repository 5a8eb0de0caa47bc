package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/audio"
	"github.com/dgnsrekt/repeat/internal/session"
	"github.com/dgnsrekt/repeat/internal/tts"
	"github.com/dgnsrekt/repeat/internal/tts/engines"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	minCacheSizeMB = 1
	maxCacheSizeMB = 10000
)

// settings is the validated form of the configuration file, environment
// and flags.
type settings struct {
	Session session.Config

	Catalog      string
	CatalogWatch bool

	Engine       tts.EngineType
	Fallback     tts.EngineType // empty when unset
	Piper        engines.PiperConfig
	GTTS         engines.GTTSConfig
	Concurrency  int
	CacheDir     string
	CacheMaxSize int64 // bytes

	SampleRate   int
	AudioEnabled bool

	MetricsAddr string
	LogLevel    log.Level
}

func setDefaults(v *viper.Viper) {
	def := session.DefaultConfig()
	v.SetDefault("session.total_sets", def.TotalSets)
	v.SetDefault("session.rest_seconds", def.RestSeconds)
	v.SetDefault("session.set_rest_seconds", def.SetRestSeconds)
	v.SetDefault("session.announce_delay", def.AnnounceDelay.String())

	v.SetDefault("catalog", "")
	v.SetDefault("catalog_watch", true)

	v.SetDefault("tts.engine", "mock")
	v.SetDefault("tts.fallback", "")
	v.SetDefault("tts.concurrency", tts.DefaultConcurrency)
	v.SetDefault("tts.piper.binary", "piper")
	v.SetDefault("tts.piper.model", "")
	v.SetDefault("tts.piper.speed", 1.0)
	v.SetDefault("tts.gtts.language", "en")
	v.SetDefault("tts.gtts.slow", false)
	v.SetDefault("tts.gtts.requests_per_minute", 50)
	v.SetDefault("tts.cache.dir", "")
	v.SetDefault("tts.cache.max_size", 100)

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.sample_rate", 44100)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// loadSettings reads and validates every key from v.
func loadSettings(v *viper.Viper) (settings, error) {
	var s settings

	delay, err := time.ParseDuration(v.GetString("session.announce_delay"))
	if err != nil {
		return s, fmt.Errorf("session.announce_delay: %w", err)
	}
	s.Session = session.Config{
		TotalSets:      v.GetInt("session.total_sets"),
		RestSeconds:    v.GetInt("session.rest_seconds"),
		SetRestSeconds: v.GetInt("session.set_rest_seconds"),
		AnnounceDelay:  delay,
	}
	if err := s.Session.Validate(); err != nil {
		return s, err //nolint:wrapcheck
	}

	if s.Catalog, err = expandPath(v.GetString("catalog")); err != nil {
		return s, err
	}
	s.CatalogWatch = v.GetBool("catalog_watch")

	if s.Engine, err = tts.ParseEngine(v.GetString("tts.engine")); err != nil {
		return s, err //nolint:wrapcheck
	}
	if name := v.GetString("tts.fallback"); name != "" {
		if s.Fallback, err = tts.ParseEngine(name); err != nil {
			return s, fmt.Errorf("tts.fallback: %w", err)
		}
		if s.Fallback == s.Engine {
			return s, fmt.Errorf("tts.fallback must differ from tts.engine, both are %s", s.Engine)
		}
	}
	s.Concurrency = v.GetInt("tts.concurrency")
	if s.Concurrency < 1 {
		return s, fmt.Errorf("tts.concurrency must be at least 1, got %d", s.Concurrency)
	}

	s.SampleRate = v.GetInt("audio.sample_rate")
	if s.SampleRate != 44100 && s.SampleRate != 48000 {
		return s, fmt.Errorf("audio.sample_rate must be 44100 or 48000, got %d", s.SampleRate)
	}
	s.AudioEnabled = v.GetBool("audio.enabled")

	model, err := expandPath(v.GetString("tts.piper.model"))
	if err != nil {
		return s, err
	}
	s.Piper = engines.PiperConfig{
		Binary:    v.GetString("tts.piper.binary"),
		ModelPath: model,
		Speed:     v.GetFloat64("tts.piper.speed"),
	}
	if s.Piper.Speed < 0.1 || s.Piper.Speed > 3.0 {
		return s, fmt.Errorf("tts.piper.speed must be between 0.1 and 3.0, got %.2f", s.Piper.Speed)
	}

	lang := v.GetString("tts.gtts.language")
	if len(lang) < 2 || len(lang) > 5 {
		return s, fmt.Errorf("tts.gtts.language must be 2-5 characters, got %q", lang)
	}
	s.GTTS = engines.GTTSConfig{
		Language:          lang,
		Slow:              v.GetBool("tts.gtts.slow"),
		SampleRate:        s.SampleRate,
		RequestsPerMinute: v.GetInt("tts.gtts.requests_per_minute"),
	}

	if s.CacheDir, err = expandPath(v.GetString("tts.cache.dir")); err != nil {
		return s, err
	}
	size := v.GetInt64("tts.cache.max_size")
	if size < minCacheSizeMB || size > maxCacheSizeMB {
		return s, fmt.Errorf("tts.cache.max_size must be between %d and %d MB, got %d", minCacheSizeMB, maxCacheSizeMB, size)
	}
	s.CacheMaxSize = size * 1024 * 1024

	s.MetricsAddr = v.GetString("metrics.addr")

	if s.LogLevel, err = log.ParseLevel(v.GetString("log.level")); err != nil {
		return s, fmt.Errorf("log.level: %w", err)
	}
	return s, nil
}

// outputRate is the sample rate every configured engine must produce.
// Piper's rate is fixed by its voice model, so the others follow it.
func (s settings) outputRate() int {
	if s.Engine == tts.EnginePiper || s.Fallback == tts.EnginePiper {
		if s.Piper.SampleRate > 0 {
			return s.Piper.SampleRate
		}
		return audio.DefaultPlayerConfig().SampleRate
	}
	return s.SampleRate
}

// cacheVariant distinguishes persisted audio produced with different voice
// settings by the same engine.
func (s settings) cacheVariant() string {
	switch s.Engine {
	case tts.EnginePiper:
		return fmt.Sprintf("%s@%.2f", filepath.Base(s.Piper.ModelPath), s.Piper.Speed)
	case tts.EngineGTTS:
		return fmt.Sprintf("%s@%t", strings.ToLower(s.GTTS.Language), s.GTTS.Slow)
	default:
		return ""
	}
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("unable to expand %q: %w", p, err)
	}
	return expanded, nil
}
