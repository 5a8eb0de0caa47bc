package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without a device. Each Play sleeps for
// Delay and records what was played and how many plays overlapped.
type MockPlayer struct {
	// Delay is the simulated length of every payload.
	Delay time.Duration

	// Fail, when set, decides whether a payload fails to play.
	Fail func(pcm []byte) error

	// RequireUnlock makes Play return ErrLocked until Unlock is called.
	RequireUnlock bool

	callbacks MockCallbacks

	mu     sync.Mutex
	played [][]byte

	unlocked    atomic.Bool
	unlockCount atomic.Int64
	active      atomic.Int32
	maxActive   atomic.Int32
	playCount   atomic.Int64
}

// MockCallbacks are hooks fired around each simulated play.
type MockCallbacks struct {
	OnPlay func(pcm []byte)
	OnDone func(pcm []byte, err error)
}

// NewMockPlayer creates a mock that plays every payload for delay.
func NewMockPlayer(delay time.Duration, callbacks MockCallbacks) *MockPlayer {
	return &MockPlayer{Delay: delay, callbacks: callbacks}
}

// Unlock records the call and enables playback.
func (mp *MockPlayer) Unlock() error {
	mp.unlockCount.Add(1)
	mp.unlocked.Store(true)
	return nil
}

// Unlocked reports whether Unlock has been called.
func (mp *MockPlayer) Unlocked() bool {
	return mp.unlocked.Load()
}

// Play simulates playing pcm.
func (mp *MockPlayer) Play(ctx context.Context, pcm []byte) (err error) {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}
	if mp.RequireUnlock && !mp.unlocked.Load() {
		return ErrLocked
	}

	n := mp.active.Add(1)
	defer mp.active.Add(-1)
	for {
		peak := mp.maxActive.Load()
		if n <= peak || mp.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	mp.playCount.Add(1)
	mp.mu.Lock()
	mp.played = append(mp.played, append([]byte(nil), pcm...))
	mp.mu.Unlock()

	if mp.callbacks.OnPlay != nil {
		mp.callbacks.OnPlay(pcm)
	}
	defer func() {
		if mp.callbacks.OnDone != nil {
			mp.callbacks.OnDone(pcm, err)
		}
	}()

	if mp.Fail != nil {
		if err := mp.Fail(pcm); err != nil {
			return err
		}
	}

	if mp.Delay > 0 {
		t := time.NewTimer(mp.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// Played returns copies of every payload passed to Play, in call order.
func (mp *MockPlayer) Played() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([][]byte, len(mp.played))
	copy(out, mp.played)
	return out
}

// PlayCount returns how many times Play got past argument checks.
func (mp *MockPlayer) PlayCount() int64 { return mp.playCount.Load() }

// UnlockCount returns how many times Unlock was called.
func (mp *MockPlayer) UnlockCount() int64 { return mp.unlockCount.Load() }

// MaxConcurrent returns the largest number of overlapping Play calls seen.
func (mp *MockPlayer) MaxConcurrent() int32 { return mp.maxActive.Load() }
