package engines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dgnsrekt/repeat/internal/cache"
	"github.com/dgnsrekt/repeat/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script into dir.
func fakeBinary(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)) //nolint:gosec
	return path
}

func TestMockEngine(t *testing.T) {
	e := &MockEngine{SampleRate: 22050, WordsPerMinute: 60}

	pcm, err := e.Synthesize(context.Background(), "one two")
	require.NoError(t, err)
	// Two words at 60 wpm is two seconds of 16-bit mono.
	assert.Len(t, pcm, 2*22050*2)

	_, err = e.Synthesize(context.Background(), "")
	assert.ErrorIs(t, err, tts.ErrEmptyText)
	assert.Equal(t, 2, e.Calls())

	boom := errors.New("boom")
	e.Fail = func(string) error { return boom }
	_, err = e.Synthesize(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestMockEngineHonorsContext(t *testing.T) {
	e := &MockEngine{Delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Synthesize(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPiperEngine(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	tests := []struct {
		name    string
		config  PiperConfig
		wantErr bool
	}{
		{"missing model path", PiperConfig{}, true},
		{"model not on disk", PiperConfig{ModelPath: filepath.Join(dir, "nope.onnx")}, true},
		{"speed too high", PiperConfig{ModelPath: model, Speed: 4}, true},
		{"defaults", PiperConfig{ModelPath: model}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewPiperEngine(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 22050, e.Info().SampleRate)
			assert.Equal(t, "piper", e.Info().Name)
			assert.False(t, e.Info().IsOnline)
		})
	}
}

func TestPiperSynthesizeReadsStdin(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))
	bin := fakeBinary(t, dir, "piper", "cat")

	e, err := NewPiperEngine(PiperConfig{Binary: bin, ModelPath: model})
	require.NoError(t, err)
	require.NoError(t, e.Validate())

	pcm, err := e.Synthesize(context.Background(), "Rest.")
	require.NoError(t, err)
	assert.Equal(t, "Rest.", string(pcm))
}

func TestPiperSynthesizeErrors(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	t.Run("empty text", func(t *testing.T) {
		e, err := NewPiperEngine(PiperConfig{ModelPath: model})
		require.NoError(t, err)
		_, err = e.Synthesize(context.Background(), "")
		assert.ErrorIs(t, err, tts.ErrEmptyText)
	})

	t.Run("process fails", func(t *testing.T) {
		bin := fakeBinary(t, dir, "piper-fail", "echo bad model >&2; exit 1")
		e, err := NewPiperEngine(PiperConfig{Binary: bin, ModelPath: model})
		require.NoError(t, err)
		_, err = e.Synthesize(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad model")
	})

	t.Run("no output", func(t *testing.T) {
		bin := fakeBinary(t, dir, "piper-silent", "cat >/dev/null")
		e, err := NewPiperEngine(PiperConfig{Binary: bin, ModelPath: model})
		require.NoError(t, err)
		_, err = e.Synthesize(context.Background(), "hello")
		assert.ErrorContains(t, err, "no output")
	})

	t.Run("timeout", func(t *testing.T) {
		bin := fakeBinary(t, dir, "piper-slow", "exec sleep 5")
		e, err := NewPiperEngine(PiperConfig{Binary: bin, ModelPath: model, Timeout: 50 * time.Millisecond})
		require.NoError(t, err)
		start := time.Now()
		_, err = e.Synthesize(context.Background(), "hello")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("missing binary", func(t *testing.T) {
		e, err := NewPiperEngine(PiperConfig{Binary: filepath.Join(dir, "absent"), ModelPath: model})
		require.NoError(t, err)
		assert.Error(t, e.Validate())
	})
}

func TestGTTSPipeline(t *testing.T) {
	dir := t.TempDir()
	// gtts-cli prints its text argument as the "mp3"; ffmpeg passes stdin through.
	gtts := fakeBinary(t, dir, "gtts-cli", `printf '%s' "$1"`)
	ffmpeg := fakeBinary(t, dir, "ffmpeg", "cat")

	e, err := NewGTTSEngine(GTTSConfig{GTTSBinary: gtts, FFmpegBinary: ffmpeg, RequestsPerMinute: 6000})
	require.NoError(t, err)
	require.NoError(t, e.Validate())
	assert.True(t, e.Info().IsOnline)
	assert.Equal(t, 44100, e.Info().SampleRate)

	pcm, err := e.Synthesize(context.Background(), "Let's go. Squats.")
	require.NoError(t, err)
	assert.Equal(t, "Let's go. Squats.", string(pcm))
}

func TestGTTSArgs(t *testing.T) {
	e, err := NewGTTSEngine(GTTSConfig{Language: "es", Slow: true, Speed: 1.5, SampleRate: 22050})
	require.NoError(t, err)

	assert.Equal(t, []string{"hola", "-l", "es", "--slow", "-o", "-"}, e.gttsArgs("hola"))
	args := e.ffmpegArgs()
	assert.Contains(t, args, "22050")
	assert.Contains(t, args, "atempo=1.50")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	_, err = NewGTTSEngine(GTTSConfig{Speed: 3})
	assert.Error(t, err)
}

func TestGTTSRateLimitHonorsContext(t *testing.T) {
	e, err := NewGTTSEngine(GTTSConfig{RequestsPerMinute: 1, GTTSBinary: "true", FFmpegBinary: "true"})
	require.NoError(t, err)
	// Drain the single burst token.
	require.True(t, e.rateLimiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Synthesize(ctx, "hello")
	assert.ErrorContains(t, err, "rate limit")
}

func TestCachedEngine(t *testing.T) {
	disk, err := cache.NewDiskCache(t.TempDir(), 10*1024*1024)
	require.NoError(t, err)

	inner := &MockEngine{}
	c := NewCached(inner, disk, "speed=1.00")
	defer c.Close()

	first, err := c.Synthesize(context.Background(), "Up next is Squats.")
	require.NoError(t, err)
	second, err := c.Synthesize(context.Background(), "Up next is Squats.")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, int64(1), c.Stats().Hits)
	assert.Equal(t, inner.Info(), c.Info())

	// A different variant is a different key.
	other := NewCached(inner, disk, "speed=1.50")
	_, err = other.Synthesize(context.Background(), "Up next is Squats.")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedEngineDoesNotStoreFailures(t *testing.T) {
	disk, err := cache.NewDiskCache(t.TempDir(), 1024*1024)
	require.NoError(t, err)

	boom := errors.New("offline")
	inner := &MockEngine{Fail: func(string) error { return boom }}
	c := NewCached(inner, disk, "")

	_, err = c.Synthesize(context.Background(), "Rest.")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), c.Stats().ItemCount)
}

func TestFallbackSwitchesAfterFailures(t *testing.T) {
	boom := errors.New("engine down")
	primary := &MockEngine{Fail: func(string) error { return boom }}
	secondary := &MockEngine{}

	f, err := NewFallback(primary, secondary, 2)
	require.NoError(t, err)

	_, err = f.Synthesize(context.Background(), "first")
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.UsingSecondary())

	pcm, err := f.Synthesize(context.Background(), "second")
	require.NoError(t, err)
	assert.NotEmpty(t, pcm)
	assert.True(t, f.UsingSecondary())

	_, err = f.Synthesize(context.Background(), "third")
	require.NoError(t, err)
	assert.Equal(t, 2, primary.Calls())
	assert.Equal(t, 2, secondary.Calls())
}

func TestFallbackIgnoresInputErrors(t *testing.T) {
	primary := &MockEngine{}
	secondary := &MockEngine{}
	f, err := NewFallback(primary, secondary, 1)
	require.NoError(t, err)

	_, err = f.Synthesize(context.Background(), "")
	assert.ErrorIs(t, err, tts.ErrEmptyText)
	assert.False(t, f.UsingSecondary())
	assert.Equal(t, 0, secondary.Calls())
}

func TestFallbackRecoveryResetsCount(t *testing.T) {
	fail := true
	primary := &MockEngine{Fail: func(string) error {
		if fail {
			return errors.New("flaky")
		}
		return nil
	}}
	f, err := NewFallback(primary, &MockEngine{}, 2)
	require.NoError(t, err)

	_, err = f.Synthesize(context.Background(), "a")
	assert.Error(t, err)
	fail = false
	_, err = f.Synthesize(context.Background(), "b")
	require.NoError(t, err)
	fail = true
	_, err = f.Synthesize(context.Background(), "c")
	assert.Error(t, err)
	assert.False(t, f.UsingSecondary())
}

func TestFallbackRejectsMismatchedFormats(t *testing.T) {
	_, err := NewFallback(&MockEngine{SampleRate: 22050}, &MockEngine{SampleRate: 44100}, 2)
	assert.ErrorIs(t, err, tts.ErrInvalidEngine)
}

func TestFallbackValidate(t *testing.T) {
	model := filepath.Join(t.TempDir(), "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))
	piper, err := NewPiperEngine(PiperConfig{Binary: "repeat-test-no-such-piper", ModelPath: model})
	require.NoError(t, err)

	f, err := NewFallback(piper, &MockEngine{}, 2)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.True(t, f.UsingSecondary())
	assert.Equal(t, string(tts.EngineMock), f.Info().Name)
}
