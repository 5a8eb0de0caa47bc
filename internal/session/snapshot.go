package session

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/repeat/internal/tts"
	"github.com/dgnsrekt/repeat/internal/workout"
)

// Snapshot is a read-only view of a session for presentation. Plan is shared
// with the machine and must not be modified.
type Snapshot struct {
	Phase     Phase
	Suspended Phase // the paused phase, when Phase is Paused

	Day   time.Weekday
	Focus string
	Plan  *workout.Plan

	ExerciseIndex int
	Set           int
	TotalSets     int

	Remaining int
	Total     int

	// Preparing is true while Loading runs the pre-generation pass.
	Preparing bool

	Err    string
	Notice string

	CachedLines  int64
	CachedBytes  int64
	StoredBytes  int64 // persistent synthesis cache, across sessions
	Pregenerated tts.PregenerateResult
}

// Effective is the phase a paused session will resume into, or Phase.
func (s Snapshot) Effective() Phase {
	if s.Phase == Paused {
		return s.Suspended
	}
	return s.Phase
}

// Exercise returns the current exercise, if a plan is loaded.
func (s Snapshot) Exercise() (workout.Exercise, bool) {
	if s.Plan == nil || s.ExerciseIndex < 0 || s.ExerciseIndex >= len(s.Plan.Workout) {
		return workout.Exercise{}, false
	}
	return s.Plan.Workout[s.ExerciseIndex], true
}

// TimerLabel is WORK, REST or SET REST for countdown and paused phases.
func (s Snapshot) TimerLabel() string {
	switch s.Effective() {
	case ExerciseActive:
		return "WORK"
	case RestActive:
		return "REST"
	case SetRestActive:
		return "SET REST"
	default:
		return ""
	}
}

// UpNext describes what follows the current phase.
func (s Snapshot) UpNext() string {
	if s.Plan == nil {
		return ""
	}
	last := s.ExerciseIndex == len(s.Plan.Workout)-1
	if s.Effective() == ExerciseActive {
		if last {
			return "Long Rest"
		}
		return "Rest"
	}
	if next := s.ExerciseIndex + 1; next < len(s.Plan.Workout) {
		return s.Plan.Workout[next].Name
	}
	return "Finish Workout"
}

// Header is the progress line shown above the timer.
func (s Snapshot) Header() string {
	if s.Plan == nil {
		return ""
	}
	if s.Effective() != ExerciseActive {
		return fmt.Sprintf("Set %d / %d", s.Set, s.TotalSets)
	}
	return fmt.Sprintf("Exercise %d / %d · Set %d / %d", s.ExerciseIndex+1, len(s.Plan.Workout), s.Set, s.TotalSets)
}

// ReadyHeader summarizes the plan before it starts.
func (s Snapshot) ReadyHeader() string {
	if s.Plan == nil {
		return ""
	}
	return fmt.Sprintf("%d Sets / %s", s.TotalSets, s.Plan.TotalDuration)
}

// LoadingStatus describes what Loading is doing.
func (s Snapshot) LoadingStatus() string {
	if s.Preparing {
		return "Preparing workout..."
	}
	return "Getting your workout ready..."
}

// Progress is the elapsed fraction of the current countdown.
func (s Snapshot) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Total-s.Remaining) / float64(s.Total)
}

// RestDay reports whether today is the scheduled rest day.
func (s Snapshot) RestDay() bool {
	return workout.IsRestDay(s.Focus)
}
