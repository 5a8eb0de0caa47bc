package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/audio"
	"github.com/dgnsrekt/repeat/internal/cache"
	"github.com/dgnsrekt/repeat/internal/observability"
	"github.com/dgnsrekt/repeat/internal/queue"
	"github.com/dgnsrekt/repeat/internal/session"
	"github.com/dgnsrekt/repeat/internal/tts"
	"github.com/dgnsrekt/repeat/internal/tts/engines"
	"github.com/dgnsrekt/repeat/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const metricsNamespace = "repeat"

// player is the playback primitive: the oto player, or a silent mock when
// audio is disabled.
type player interface {
	queue.Player
	session.Unlocker
}

// app holds the wired session and everything it depends on.
type app struct {
	settings settings

	engine   tts.Engine
	player   player
	queue    *queue.PlaybackQueue
	narrator *tts.Narrator
	catalog  *workout.Catalog
	machine  *session.Machine
	runner   *session.Runner

	registry *prometheus.Registry
	metrics  *observability.Metrics

	closers []func() error
}

// newApp wires a session from s; opts configure its runner.
func newApp(s settings, opts ...session.RunnerOption) (*app, error) {
	a := &app{settings: s}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(metricsNamespace, a.registry)

	var err error
	if a.catalog, err = loadCatalog(s.Catalog); err != nil {
		return nil, err
	}

	if a.engine, err = newEngine(s); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.engine.Close)

	if a.player, err = newPlayer(s, a.engine.Info()); err != nil {
		_ = a.Close()
		return nil, err
	}
	if c, ok := a.player.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	// runner is set below, before anything can call notify.
	var runner *session.Runner
	notify := func(msg string) {
		if runner != nil {
			runner.Notify(msg)
		}
	}

	a.queue = queue.New(a.player,
		queue.WithObserver(a.metrics),
		queue.WithErrorHandler(playbackErrorHandler(notify)),
	)
	a.closers = append(a.closers, a.queue.Close)

	a.narrator = tts.NewNarrator(a.engine, cache.NewSpeechCache(), a.queue,
		tts.WithConcurrency(s.Concurrency),
		tts.WithObserver(a.metrics),
		tts.WithNotify(notify),
	)
	a.closers = append(a.closers, a.narrator.Close)

	machineOpts := []session.Option{
		session.WithUnlocker(a.player),
		session.WithObserver(a.metrics),
	}
	if store, ok := a.engine.(*engines.Cached); ok {
		machineOpts = append(machineOpts, session.WithStore(store))
	}
	a.machine, err = session.NewMachine(s.Session, a.catalog, a.narrator, machineOpts...)
	if err != nil {
		_ = a.Close()
		return nil, err //nolint:wrapcheck
	}
	runner = session.NewRunner(a.machine, opts...)
	a.runner = runner
	return a, nil
}

// playbackError classifies a failed payload. A locked or missing device
// affects every later payload too.
func playbackError(err error) *tts.TTSError {
	if errors.Is(err, audio.ErrLocked) {
		return tts.NewTTSError(tts.ErrorCodeAudioDevice, "audio output unavailable", err)
	}
	return tts.NewTTSError(tts.ErrorCodeAudioFailure, "playback failed", err)
}

// playbackErrorHandler shows the notice for each failed payload until a
// fatal error, after which the notice has been shown and later failures are
// only logged.
func playbackErrorHandler(notify func(string)) func(error) {
	var fatal atomic.Bool
	return func(err error) {
		te := playbackError(err)
		if fatal.Load() {
			log.Debug("Narration playback still unavailable", "err", te)
			return
		}
		if te.IsFatal() {
			fatal.Store(true)
		}
		notify(tts.NoticeUnavailable)
	}
}

func loadCatalog(path string) (*workout.Catalog, error) {
	if path == "" {
		return workout.DefaultCatalog() //nolint:wrapcheck
	}
	c, err := workout.LoadCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load catalog: %w", err)
	}
	log.Debug("Loaded workout catalog", "path", path, "plans", c.Len())
	return c, nil
}

// newEngine builds the configured synthesizer, behind the fallback engine
// and the persistent cache when those are configured.
func newEngine(s settings) (tts.Engine, error) {
	rate := s.outputRate()
	engine, err := buildEngine(s, s.Engine, rate)
	if err != nil {
		return nil, err
	}

	if s.Fallback != "" {
		secondary, err := buildEngine(s, s.Fallback, rate)
		if err != nil {
			_ = engine.Close()
			return nil, err
		}
		fb, err := engines.NewFallback(engine, secondary, engines.DefaultMaxFailures)
		if err != nil {
			_ = errors.Join(engine.Close(), secondary.Close())
			return nil, fmt.Errorf("unable to set up fallback engine: %w", err)
		}
		engine = fb
	}

	if err := engine.Validate(); err != nil {
		_ = engine.Close()
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable,
			fmt.Sprintf("%s engine is not usable", s.Engine), err)
	}

	if s.CacheDir == "" {
		return engine, nil
	}
	disk, err := cache.NewDiskCache(s.CacheDir, s.CacheMaxSize)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("unable to open synthesis cache: %w", err)
	}
	return engines.NewCached(engine, disk, s.cacheVariant()), nil
}

func buildEngine(s settings, kind tts.EngineType, rate int) (tts.Engine, error) {
	var (
		engine tts.Engine
		err    error
	)
	switch kind {
	case tts.EnginePiper:
		engine, err = engines.NewPiperEngine(s.Piper)
	case tts.EngineGTTS:
		config := s.GTTS
		config.SampleRate = rate
		engine, err = engines.NewGTTSEngine(config)
	default:
		engine = &engines.MockEngine{SampleRate: rate}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create %s engine: %w", kind, err)
	}
	return engine, nil
}

func newPlayer(s settings, info tts.EngineInfo) (player, error) {
	if !s.AudioEnabled {
		return audio.NewMockPlayer(0, audio.MockCallbacks{}), nil
	}

	config := audio.DefaultPlayerConfig()
	config.SampleRate = info.SampleRate
	config.Channels = info.Channels
	p, err := audio.NewPlayer(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create audio player: %w", err)
	}
	return p, nil
}

// run starts the session loop and its background services, then blocks on
// fg (the UI). When fg returns everything else is stopped.
func (a *app) run(ctx context.Context, fg func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.runner.Run(gctx) })

	if a.settings.MetricsAddr != "" {
		srv := observability.NewServer(a.settings.MetricsAddr, a.registry)
		g.Go(func() error { return srv.Serve(gctx) })
	}
	if a.settings.Catalog != "" && a.settings.CatalogWatch {
		g.Go(func() error {
			err := workout.Watch(gctx, a.settings.Catalog, a.catalog, nil)
			if err != nil {
				log.Warn("Not watching workout catalog", "err", err)
			}
			return nil
		})
	}

	fgErr := fg()
	cancel()
	return errors.Join(fgErr, g.Wait())
}

// Close releases the audio pipeline in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
