package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const commandBuffer = 64

// Runner owns a Machine and is the only goroutine that touches it. User
// commands, timer ticks and asynchronous completions all arrive as events
// on one loop, and a Snapshot is published after each of them.
type Runner struct {
	m        *Machine
	interval time.Duration
	cmds     chan func(*Machine)
	done     chan struct{}

	onSnapshot func(Snapshot)

	mu   sync.RWMutex
	last Snapshot
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInterval sets the tick interval. Tests use short intervals; the
// session counts one second per tick regardless.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSnapshotHandler is called on the runner goroutine after every event.
func WithSnapshotHandler(fn func(Snapshot)) RunnerOption {
	return func(r *Runner) { r.onSnapshot = fn }
}

// NewRunner takes ownership of m.
func NewRunner(m *Machine, opts ...RunnerOption) *Runner {
	r := &Runner{
		m:        m,
		interval: time.Second,
		cmds:     make(chan func(*Machine), commandBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	m.post = r.Post
	r.last = m.Snapshot()
	return r
}

// Post schedules f to run on the runner goroutine. It blocks while the
// command buffer is full and returns without running f once the runner has
// stopped.
func (r *Runner) Post(f func(*Machine)) {
	select {
	case r.cmds <- f:
	case <-r.done:
	}
}

func (r *Runner) FetchWorkout(tired bool) {
	r.Post(func(m *Machine) { m.FetchWorkout(tired) })
}

func (r *Runner) StartWorkout() {
	r.Post((*Machine).StartWorkout)
}

func (r *Runner) PauseResume() {
	r.Post((*Machine).PauseResume)
}

func (r *Runner) Reset() {
	r.Post((*Machine).Reset)
}

// Notify shows msg as the session notice. It is safe to call from any
// goroutine, which makes it suitable for narration error callbacks.
func (r *Runner) Notify(msg string) {
	r.Post(func(m *Machine) { m.SetNotice(msg) })
}

// Snapshot returns the most recently published snapshot.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run processes events until ctx is done. At most one ticker exists at a
// time, and it is replaced whenever the timer starts, resumes or stops.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	var (
		ticker     *time.Ticker
		tick       <-chan time.Time
		generation = r.m.timer.Generation()
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	syncTicker := func() {
		if g := r.m.timer.Generation(); g != generation {
			generation = g
			stopTicker()
			if r.m.timer.Running() {
				ticker = time.NewTicker(r.interval)
				tick = ticker.C
			}
		}
	}
	defer stopTicker()

	r.publish()
	for {
		select {
		case <-ctx.Done():
			r.m.Close()
			log.Debug("Session runner stopped")
			return nil
		case f := <-r.cmds:
			f(r.m)
		case <-tick:
			r.m.Tick()
		}
		syncTicker()
		r.publish()
	}
}

func (r *Runner) publish() {
	snap := r.m.Snapshot()
	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()
	if r.onSnapshot != nil {
		r.onSnapshot(snap)
	}
}
