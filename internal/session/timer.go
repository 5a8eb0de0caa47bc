package session

// TickResult reports what happened on one tick of the Timer.
type TickResult struct {
	// Expired is true exactly once, on the tick that reaches zero.
	Expired bool

	// TenSeconds marks the tick where a work interval has ten seconds left.
	TenSeconds bool

	// Halfway marks the tick at half the phase's total length.
	Halfway bool
}

// Timer is a single one-second countdown. It holds no goroutines; the Runner
// calls Tick once per interval while Running reports true.
//
// Milestones are evaluated on the value before it is decremented, so a ten
// second interval fires TenSeconds never, Halfway on the tick that reads 5,
// and Expired on the tenth tick.
type Timer struct {
	remaining int
	total     int
	work      bool
	running   bool

	// generation changes whenever the countdown starts, resumes or stops,
	// telling the Runner to replace its ticker.
	generation uint64
}

// Start resets both remaining and total to seconds and begins counting.
// Any previous countdown is superseded.
func (t *Timer) Start(seconds int, work bool) {
	t.total = seconds
	t.Resume(seconds, work)
}

// Resume restarts counting from remaining without touching the total, so a
// progress indicator does not jump.
func (t *Timer) Resume(remaining int, work bool) {
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	t.work = work
	t.running = remaining > 0
	t.generation++
}

// Stop halts the countdown and keeps the remaining time. It is idempotent.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.running = false
	t.generation++
}

// Reset stops the countdown and zeroes it.
func (t *Timer) Reset() {
	t.Stop()
	t.remaining = 0
	t.total = 0
}

// Tick advances the countdown by one second.
func (t *Timer) Tick() TickResult {
	if !t.running {
		return TickResult{}
	}

	prev := t.remaining
	if prev <= 1 {
		t.remaining = 0
		t.running = false
		t.generation++
		return TickResult{Expired: true}
	}

	var res TickResult
	if t.work && prev == 11 {
		res.TenSeconds = true
	}
	if t.work && prev == t.total/2 {
		res.Halfway = true
	}
	t.remaining--
	return res
}

func (t *Timer) Remaining() int { return t.remaining }

func (t *Timer) Total() int { return t.total }

func (t *Timer) Running() bool { return t.running }

func (t *Timer) Work() bool { return t.work }

func (t *Timer) Generation() uint64 { return t.generation }
