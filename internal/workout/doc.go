// Package workout holds the workout catalog: exercises, the plans that
// group them by focus, and the weekly schedule that picks today's focus.
package workout
