package workout

import "time"

const (
	// RestFocus is the focus label of the weekly rest day.
	RestFocus = "Rest / Reflection"

	// TiredFocus is the alternate focus offered when the user is tired.
	TiredFocus = "Active Recovery (Mobility / Yoga)"
)

// WeeklyPlan maps each day of the week to its focus, starting on Sunday.
var WeeklyPlan = [7]string{
	time.Sunday:    "Legs",
	time.Monday:    "Chest + Triceps",
	time.Tuesday:   "Back + Biceps",
	time.Wednesday: RestFocus,
	time.Thursday:  "Core",
	time.Friday:    "Full Body / HIIT",
	time.Saturday:  TiredFocus,
}

// FocusFor returns the scheduled focus for a weekday.
func FocusFor(day time.Weekday) string {
	return WeeklyPlan[day]
}

// IsRestDay reports whether focus is the scheduled rest day.
func IsRestDay(focus string) bool {
	return focus == RestFocus
}
