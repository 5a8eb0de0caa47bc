package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid session config")

// Config holds session pacing.
type Config struct {
	// TotalSets is how many times the exercise list is repeated.
	TotalSets int

	// RestSeconds is the short rest between exercises.
	RestSeconds int

	// SetRestSeconds is the long rest between sets.
	SetRestSeconds int

	// AnnounceDelay separates "Rest." from the up-next announcement.
	AnnounceDelay time.Duration
}

// DefaultConfig returns four sets with 30 second rests, 90 second set rests
// and a 1.5 second announcement delay.
func DefaultConfig() Config {
	return Config{
		TotalSets:      4,
		RestSeconds:    30,
		SetRestSeconds: 90,
		AnnounceDelay:  1500 * time.Millisecond,
	}
}

// Validate checks every value is usable.
func (c Config) Validate() error {
	switch {
	case c.TotalSets < 1:
		return fmt.Errorf("%w: total sets must be at least 1, got %d", ErrInvalidConfig, c.TotalSets)
	case c.RestSeconds < 1:
		return fmt.Errorf("%w: rest must be at least 1 second, got %d", ErrInvalidConfig, c.RestSeconds)
	case c.SetRestSeconds < 1:
		return fmt.Errorf("%w: set rest must be at least 1 second, got %d", ErrInvalidConfig, c.SetRestSeconds)
	case c.AnnounceDelay < 0:
		return fmt.Errorf("%w: announce delay cannot be negative, got %s", ErrInvalidConfig, c.AnnounceDelay)
	}
	return nil
}
