package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechCache_BasicOperations(t *testing.T) {
	sc := NewSpeechCache()

	_, ok := sc.Get("Rest.")
	assert.False(t, ok)

	require.NoError(t, sc.Put("Rest.", []byte{1, 2, 3}))
	assert.True(t, sc.Contains("Rest."))

	got, ok := sc.Get("Rest.")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	stats := sc.Stats()
	assert.Equal(t, int64(1), stats.ItemCount)
	assert.Equal(t, int64(3), stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestSpeechCache_ExactMatch(t *testing.T) {
	sc := NewSpeechCache()
	require.NoError(t, sc.Put("Rest.", []byte{1}))

	for _, key := range []string{"rest.", "Rest", " Rest.", "Rest. "} {
		assert.False(t, sc.Contains(key), "key %q", key)
	}
}

func TestSpeechCache_OverwriteIsIdempotent(t *testing.T) {
	sc := NewSpeechCache()
	require.NoError(t, sc.Put("a", []byte{1, 2}))
	require.NoError(t, sc.Put("a", []byte{3, 4}))

	assert.Equal(t, 1, sc.Len())
	assert.Equal(t, int64(2), sc.Stats().Size)
}

func TestSpeechCache_RejectsEmpty(t *testing.T) {
	sc := NewSpeechCache()
	assert.ErrorIs(t, sc.Put("a", nil), ErrEmptyValue)
	assert.False(t, sc.Contains("a"))
}

func TestSpeechCache_NeverEvicts(t *testing.T) {
	sc := NewSpeechCache()
	const n = 2000
	for i := 0; i < n; i++ {
		require.NoError(t, sc.Put(fmt.Sprintf("line %d", i), make([]byte, 512)))
	}
	assert.Equal(t, n, sc.Len())
	assert.Zero(t, sc.Stats().Evictions)
}

func TestSpeechCache_ClearStartsNewSession(t *testing.T) {
	sc := NewSpeechCache()
	before, _ := sc.SessionInfo()
	require.NoError(t, sc.Put("a", []byte{1}))

	require.NoError(t, sc.Clear())

	after, _ := sc.SessionInfo()
	assert.NotEqual(t, before, after)
	assert.Zero(t, sc.Len())
	assert.Equal(t, Stats{}, sc.Stats())
}

func TestSpeechCache_Concurrent(t *testing.T) {
	sc := NewSpeechCache()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("%d-%d", i, j%10)
				_ = sc.Put(key, []byte{byte(j)})
				sc.Get(key)
				sc.Contains(key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 80, sc.Len())
}
