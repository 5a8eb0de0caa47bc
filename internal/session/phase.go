package session

// Phase is the current segment of a session.
type Phase int

const (
	// Idle shows today's focus and waits for the user to fetch a workout.
	Idle Phase = iota
	// Loading resolves the plan and pre-generates its narration.
	Loading
	// Ready shows the plan and waits for the user to start.
	Ready
	// ExerciseActive counts down a work interval.
	ExerciseActive
	// RestActive counts down the short rest between exercises.
	RestActive
	// SetRestActive counts down the long rest between sets.
	SetRestActive
	// Paused holds a countdown phase with its remaining time.
	Paused
	// Finished is reached after the last exercise of the last set.
	Finished
	// Error is terminal until reset.
	Error
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case ExerciseActive:
		return "active_exercise"
	case RestActive:
		return "active_rest"
	case SetRestActive:
		return "active_set_rest"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Countdown reports whether the phase is driven by the timer.
func (p Phase) Countdown() bool {
	return p == ExerciseActive || p == RestActive || p == SetRestActive
}

// Work reports whether the phase is a work interval.
func (p Phase) Work() bool {
	return p == ExerciseActive
}
