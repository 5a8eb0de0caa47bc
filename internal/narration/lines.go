// Package narration builds every line the session speaks. The builders here
// are the only source of narration text, so the pre-generation closure and
// the live session can't drift apart.
package narration

import (
	"fmt"

	"github.com/dgnsrekt/repeat/internal/workout"
)

const (
	// TenSecondsLeft is spoken when a work phase has ten seconds remaining.
	TenSecondsLeft = "10 seconds left, push through!"

	// Rest is spoken the moment a short rest begins.
	Rest = "Rest."
)

// UpNext announces the exercise that follows a short rest.
func UpNext(name string) string {
	return fmt.Sprintf("Up next is %s.", name)
}

// LetsGo starts an exercise after a short rest.
func LetsGo(name string) string {
	return fmt.Sprintf("Let's go. %s.", name)
}

// SetComplete closes set n and announces the long rest.
func SetComplete(set, restSeconds int) string {
	return fmt.Sprintf("Set %d complete. Take a well-deserved %d second rest.", set, restSeconds)
}

// StartingSet opens set n with its first exercise.
func StartingSet(set int, first string) string {
	return fmt.Sprintf("Starting set %d. First up: %s.", set, first)
}

// Closure returns every line a session over plan can speak, deduplicated and
// in a stable order.
func Closure(plan workout.Plan, totalSets, setRestSeconds int) []string {
	var (
		seen  = make(map[string]struct{})
		lines []string
	)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		lines = append(lines, s)
	}

	add(plan.VoiceScript.Intro)
	add(plan.VoiceScript.Outro)
	add(TenSecondsLeft)
	add(Rest)

	for _, ex := range plan.Workout {
		add(ex.Name)
		add(ex.Instructions)
		add(UpNext(ex.Name))
		add(LetsGo(ex.Name))
		for _, tip := range ex.FormTips {
			add(tip)
		}
	}

	if len(plan.Workout) > 0 {
		first := plan.Workout[0].Name
		for n := 1; n <= totalSets; n++ {
			add(SetComplete(n, setRestSeconds))
			add(StartingSet(n, first))
		}
	}
	return lines
}
