package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrEmptyValue is returned when storing a zero-length payload.
	ErrEmptyValue = errors.New("cannot cache empty audio")
)

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // bytes, 0 means unbounded
	Size      int64 // bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
}

func (s *Stats) computeHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Cache is the behavior shared by both cache tiers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Contains(key string) bool
	Clear() error
	Stats() Stats
}
