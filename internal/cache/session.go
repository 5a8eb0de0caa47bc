package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpeechCache maps narration text to its synthesized audio for the length
// of one session. Keys match exactly. Nothing is evicted until Clear.
type SpeechCache struct {
	mu    sync.RWMutex
	items map[string]*speechEntry
	size  int64

	// Regenerated on every Clear.
	sessionID string
	startTime time.Time

	stats Stats
}

type speechEntry struct {
	audio  []byte
	stored time.Time
	hits   int64
}

// NewSpeechCache creates an empty cache with a fresh session ID.
func NewSpeechCache() *SpeechCache {
	return &SpeechCache{
		items:     make(map[string]*speechEntry),
		sessionID: uuid.NewString(),
		startTime: time.Now(),
	}
}

// Get returns the audio for text.
func (sc *SpeechCache) Get(text string) ([]byte, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	entry, ok := sc.items[text]
	if !ok {
		sc.stats.Misses++
		return nil, false
	}
	entry.hits++
	sc.stats.Hits++
	sc.stats.LastAccess = time.Now()
	return entry.audio, true
}

// Put stores audio for text, replacing any previous value. Overwrites are
// harmless since the same text always synthesizes to equivalent audio.
func (sc *SpeechCache) Put(text string, audio []byte) error {
	if len(audio) == 0 {
		return ErrEmptyValue
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if existing, ok := sc.items[text]; ok {
		sc.size -= int64(len(existing.audio))
	}
	sc.items[text] = &speechEntry{audio: audio, stored: time.Now()}
	sc.size += int64(len(audio))
	return nil
}

// Contains reports whether text is cached without touching hit counters.
func (sc *SpeechCache) Contains(text string) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	_, ok := sc.items[text]
	return ok
}

// Len returns the number of cached lines.
func (sc *SpeechCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.items)
}

// Clear drops every entry and starts a new session.
func (sc *SpeechCache) Clear() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.items = make(map[string]*speechEntry)
	sc.size = 0
	sc.stats = Stats{}
	sc.sessionID = uuid.NewString()
	sc.startTime = time.Now()
	return nil
}

// Stats returns a snapshot of the cache counters.
func (sc *SpeechCache) Stats() Stats {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	stats := sc.stats
	stats.Size = sc.size
	stats.ItemCount = int64(len(sc.items))
	stats.computeHitRate()
	return stats
}

// SessionInfo returns the current session ID and its age.
func (sc *SpeechCache) SessionInfo() (id string, age time.Duration) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.sessionID, time.Since(sc.startTime)
}
