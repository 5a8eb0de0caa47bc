package workout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the catalog has no plan for a focus.
	ErrNotFound = errors.New("no workout for focus")

	// ErrInvalidPlan is returned when a plan fails validation.
	ErrInvalidPlan = errors.New("invalid workout plan")
)

// Exercise is a single timed movement within a plan.
type Exercise struct {
	Name            string   `yaml:"name"`
	DurationSeconds int      `yaml:"duration_seconds"`
	RepsSetsDisplay string   `yaml:"reps_sets_display"`
	Instructions    string   `yaml:"instructions"`
	Muscles         []string `yaml:"muscles"`
	GIFURL          string   `yaml:"gif_url,omitempty"`

	// Spoken once at the halfway mark, chosen at random.
	FormTips []string `yaml:"form_tips,omitempty"`
}

// VoiceScript bundles the plan-level narration.
type VoiceScript struct {
	Intro      string   `yaml:"intro"`
	Outro      string   `yaml:"outro"`
	Motivation []string `yaml:"motivation,omitempty"`
}

// Plan is the immutable workout selected for a session.
type Plan struct {
	Day           string      `yaml:"day"`
	Focus         string      `yaml:"focus"`
	Workout       []Exercise  `yaml:"workout"`
	TotalDuration string      `yaml:"total_duration"`
	VoiceScript   VoiceScript `yaml:"voice_script"`
}

// Validate reports whether the plan can drive a session.
func (p Plan) Validate() error {
	if p.Focus == "" {
		return fmt.Errorf("%w: focus is required", ErrInvalidPlan)
	}
	if len(p.Workout) == 0 {
		return fmt.Errorf("%w: %q has no exercises", ErrInvalidPlan, p.Focus)
	}
	for i, ex := range p.Workout {
		if ex.Name == "" {
			return fmt.Errorf("%w: %q exercise %d has no name", ErrInvalidPlan, p.Focus, i+1)
		}
		if ex.DurationSeconds <= 0 {
			return fmt.Errorf("%w: %q exercise %q must last at least one second, got %d",
				ErrInvalidPlan, p.Focus, ex.Name, ex.DurationSeconds)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate catalog data.
func (p Plan) Clone() Plan {
	c := p
	c.Workout = make([]Exercise, len(p.Workout))
	for i, ex := range p.Workout {
		ex.Muscles = append([]string(nil), ex.Muscles...)
		ex.FormTips = append([]string(nil), ex.FormTips...)
		c.Workout[i] = ex
	}
	c.VoiceScript.Motivation = append([]string(nil), p.VoiceScript.Motivation...)
	return c
}
