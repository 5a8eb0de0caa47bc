package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/repeat/internal/cache"
	"github.com/dgnsrekt/repeat/internal/narration"
	"github.com/dgnsrekt/repeat/internal/tts"
	"github.com/dgnsrekt/repeat/internal/workout"
)

// Catalog resolves a focus label to a plan.
type Catalog interface {
	Resolve(focus string) (*workout.Plan, error)
}

// Narrator speaks lines and pre-generates their audio.
type Narrator interface {
	Speak(text string)
	Pregenerate(ctx context.Context, lines []string) tts.PregenerateResult
	Reset()
	CacheStats() cache.Stats
}

// Store reports the persistent synthesis cache.
type Store interface {
	Stats() cache.Stats
}

// Unlocker performs the one-time audio unlock on a user gesture.
type Unlocker interface {
	Unlock() error
}

// Observer is told about every phase the machine enters. Resuming from a
// pause does not count as entering a phase.
type Observer interface {
	PhaseEntered(phase string)
}

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// Machine owns all session state. It is not safe for concurrent use: every
// method must be called from one goroutine, which the Runner provides.
// Asynchronous work (pre-generation, delayed announcements) hands its result
// back through post instead of touching state directly.
type Machine struct {
	cfg      Config
	catalog  Catalog
	narrator Narrator
	unlocker Unlocker
	observer Observer
	store    Store

	rng       *rand.Rand
	now       func() time.Time
	afterFunc AfterFunc
	post      func(func(*Machine))

	timer     Timer
	phase     Phase
	suspended Phase

	day   time.Weekday
	focus string
	plan  *workout.Plan
	index int
	set   int

	preparing  bool
	err        string
	notice     string
	lastResult tts.PregenerateResult

	// epoch changes on Reset; completions carrying an older epoch are dropped.
	epoch      uint64
	cancelPrep context.CancelFunc
	cues       map[uint64]func() bool
	nextCue    uint64
}

// Option configures a Machine.
type Option func(*Machine)

// WithRand sets the source used to pick form tips.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) { m.rng = r }
}

// WithClock sets the clock used to find today's focus.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithAfterFunc replaces time.AfterFunc for delayed announcements.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Machine) { m.afterFunc = fn }
}

// WithUnlocker sets the audio unlocker called on fetch and start.
func WithUnlocker(u Unlocker) Option {
	return func(m *Machine) { m.unlocker = u }
}

// WithObserver attaches phase metrics.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// WithStore reports the persistent synthesis cache in snapshots.
func WithStore(s Store) Option {
	return func(m *Machine) { m.store = s }
}

// WithPost sets how asynchronous completions are handed back to the owning
// goroutine. NewRunner sets it; tests may supply their own.
func WithPost(post func(func(*Machine))) Option {
	return func(m *Machine) { m.post = post }
}

// NewMachine creates an idle session.
func NewMachine(cfg Config, catalog Catalog, narrator Narrator, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	if narrator == nil {
		return nil, fmt.Errorf("%w: narrator is required", ErrInvalidConfig)
	}

	m := &Machine{
		cfg:      cfg,
		catalog:  catalog,
		narrator: narrator,
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		set:  1,
		cues: make(map[uint64]func() bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.post == nil {
		m.post = func(func(*Machine)) {
			log.Warn("Session has no runner, dropping completion")
		}
	}
	if m.rng == nil {
		now := uint64(m.now().UnixNano()) //nolint:gosec
		m.rng = rand.New(rand.NewPCG(now, now>>32))
	}
	m.day = m.now().Weekday()
	m.focus = workout.FocusFor(m.day)
	return m, nil
}

// FetchWorkout resolves today's plan, or the recovery plan when tired, and
// pre-generates its narration. It only acts from Idle.
func (m *Machine) FetchWorkout(tired bool) {
	if m.phase != Idle {
		return
	}

	m.err = ""
	m.notice = ""
	m.unlock()
	m.enter(Loading)

	m.day = m.now().Weekday()
	m.focus = workout.FocusFor(m.day)
	key := m.focus
	if tired {
		key = workout.TiredFocus
	}

	plan, err := m.catalog.Resolve(key)
	switch {
	case err == nil:
		m.plan = plan
		m.pregenerate(plan)
	case workout.IsRestDay(m.focus):
		m.enter(Idle)
	default:
		log.Debug("Catalog miss", "focus", key, "err", err)
		m.err = fmt.Sprintf("Could not find a workout for today's focus: %s", m.focus)
		m.enter(Error)
	}
}

func (m *Machine) pregenerate(plan *workout.Plan) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelPrep = cancel
	m.preparing = true

	epoch := m.epoch
	lines := narration.Closure(*plan, m.cfg.TotalSets, m.cfg.SetRestSeconds)
	go func() {
		res := m.narrator.Pregenerate(ctx, lines)
		m.post(func(m *Machine) { m.pregenerated(epoch, res) })
	}()
}

func (m *Machine) pregenerated(epoch uint64, res tts.PregenerateResult) {
	if epoch != m.epoch || m.phase != Loading {
		return
	}
	if m.cancelPrep != nil {
		m.cancelPrep()
		m.cancelPrep = nil
	}
	m.preparing = false
	m.lastResult = res
	if res.Failed > 0 {
		log.Warn("Some narration will be generated on demand", "failed", res.Failed, "requested", res.Requested)
	}
	m.enter(Ready)
}

// StartWorkout begins the first exercise of the first set. It only acts
// from Ready.
func (m *Machine) StartWorkout() {
	if m.phase != Ready || m.plan == nil || len(m.plan.Workout) == 0 {
		return
	}

	m.unlock()
	m.speak(m.plan.VoiceScript.Intro)
	m.index = 0
	m.set = 1
	m.timer.Start(m.plan.Workout[0].DurationSeconds, true)
	m.enter(ExerciseActive)
}

// PauseResume pauses a running countdown or resumes a paused one. The phase
// that was paused is restored exactly; it is never inferred from durations.
// Other phases are left alone.
func (m *Machine) PauseResume() {
	switch {
	case m.phase == Paused:
		m.phase = m.suspended
		m.suspended = Idle
		m.timer.Resume(m.timer.Remaining(), m.phase.Work())
		log.Debug("Resumed", "phase", m.phase, "remaining", m.timer.Remaining())
	case m.phase.Countdown():
		m.timer.Stop()
		m.suspended = m.phase
		m.enter(Paused)
	}
}

// Reset returns to Idle from any phase and forgets the plan, the counters,
// the cached audio and the playback queue. Pending pre-generation and
// announcements are abandoned.
func (m *Machine) Reset() {
	m.timer.Reset()
	m.epoch++
	if m.cancelPrep != nil {
		m.cancelPrep()
		m.cancelPrep = nil
	}
	m.stopCues()

	m.plan = nil
	m.index = 0
	m.set = 1
	m.suspended = Idle
	m.preparing = false
	m.err = ""
	m.notice = ""
	m.lastResult = tts.PregenerateResult{}

	m.narrator.Reset()
	m.enter(Idle)
}

// Tick advances the countdown by one second and applies whatever the tick
// triggers. It does nothing unless a countdown phase is active.
func (m *Machine) Tick() {
	if !m.phase.Countdown() {
		return
	}

	res := m.timer.Tick()
	if res.TenSeconds {
		m.speak(narration.TenSecondsLeft)
	}
	if res.Halfway {
		m.speakTip()
	}
	if res.Expired {
		m.advance()
	}
}

// advance runs once per zero crossing, for the phase whose timer expired.
func (m *Machine) advance() {
	exercises := m.plan.Workout
	switch m.phase {
	case ExerciseActive:
		last := m.index == len(exercises)-1
		switch {
		case last && m.set >= m.cfg.TotalSets:
			m.enter(Finished)
			m.speak(m.plan.VoiceScript.Outro)
		case last:
			m.enter(SetRestActive)
			m.speak(narration.SetComplete(m.set, m.cfg.SetRestSeconds))
			m.timer.Start(m.cfg.SetRestSeconds, false)
		default:
			m.enter(RestActive)
			m.speak(narration.Rest)
			next := exercises[m.index+1]
			m.after(m.cfg.AnnounceDelay, func(m *Machine) {
				m.speak(narration.UpNext(next.Name))
				m.speak(next.Instructions)
			})
			m.timer.Start(m.cfg.RestSeconds, false)
		}

	case RestActive:
		m.index++
		ex := exercises[m.index]
		m.enter(ExerciseActive)
		m.speak(narration.LetsGo(ex.Name))
		m.timer.Start(ex.DurationSeconds, true)

	case SetRestActive:
		m.set++
		m.index = 0
		ex := exercises[0]
		m.enter(ExerciseActive)
		m.speak(narration.StartingSet(m.set, ex.Name))
		m.timer.Start(ex.DurationSeconds, true)
	}
}

// after runs f on the owning goroutine once d has passed, unless the session
// is reset first. Pausing does not hold it back.
func (m *Machine) after(d time.Duration, f func(*Machine)) {
	epoch := m.epoch
	id := m.nextCue
	m.nextCue++
	m.cues[id] = m.afterFunc(d, func() {
		m.post(func(m *Machine) {
			delete(m.cues, id)
			if epoch != m.epoch {
				return
			}
			f(m)
		})
	})
}

func (m *Machine) stopCues() {
	for id, stop := range m.cues {
		stop()
		delete(m.cues, id)
	}
}

func (m *Machine) speakTip() {
	tips := m.plan.Workout[m.index].FormTips
	if len(tips) == 0 {
		return
	}
	m.speak(tips[m.rng.IntN(len(tips))])
}

func (m *Machine) speak(text string) {
	m.narrator.Speak(text)
}

func (m *Machine) unlock() {
	if m.unlocker == nil {
		return
	}
	if err := m.unlocker.Unlock(); err != nil {
		err = tts.NewTTSError(tts.ErrorCodeAudioDevice, "audio unlock failed", err)
		log.Warn("Audio unlock failed", "err", err)
		m.notice = tts.NoticeUnavailable
	}
}

// SetNotice shows a transient message until the next fetch or reset.
func (m *Machine) SetNotice(msg string) {
	m.notice = msg
}

func (m *Machine) enter(p Phase) {
	m.phase = p
	log.Debug("Phase changed", "phase", p, "exercise", m.index, "set", m.set)
	if m.observer != nil {
		m.observer.PhaseEntered(p.String())
	}
}

// Close abandons pending pre-generation and announcements.
func (m *Machine) Close() {
	m.timer.Stop()
	m.epoch++
	if m.cancelPrep != nil {
		m.cancelPrep()
		m.cancelPrep = nil
	}
	m.stopCues()
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Snapshot returns a read-only copy of the session state.
func (m *Machine) Snapshot() Snapshot {
	stats := m.narrator.CacheStats()
	var stored int64
	if m.store != nil {
		stored = m.store.Stats().Size
	}
	return Snapshot{
		Phase:         m.phase,
		Suspended:     m.suspended,
		Day:           m.day,
		Focus:         m.focus,
		Plan:          m.plan,
		ExerciseIndex: m.index,
		Set:           m.set,
		TotalSets:     m.cfg.TotalSets,
		Remaining:     m.timer.Remaining(),
		Total:         m.timer.Total(),
		Preparing:     m.preparing,
		Err:           m.err,
		Notice:        m.notice,
		CachedLines:   stats.ItemCount,
		CachedBytes:   stats.Size,
		StoredBytes:   stored,
		Pregenerated:  m.lastResult,
	}
}
