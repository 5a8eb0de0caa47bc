package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{"small uncompressed", []byte("tiny")},
		{"large compressible", bytes.Repeat([]byte{0, 1, 2, 3}, 4096)},
	}

	dc, err := NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, dc.Put(tt.name, tt.value))
			got, ok := dc.Get(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestDiskCache_Compresses(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	value := bytes.Repeat([]byte{7}, 64*1024)
	require.NoError(t, dc.Put("silence", value))
	assert.Less(t, dc.Stats().Size, int64(len(value)))
}

func TestDiskCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20)
	require.NoError(t, err)
	require.NoError(t, dc.Put("Rest.", []byte("audio")))
	require.NoError(t, dc.Close())

	reopened, err := NewDiskCache(dir, 1<<20)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("Rest.")
	require.True(t, ok)
	assert.Equal(t, []byte("audio"), got)
}

func TestDiskCache_EvictsLeastRecentlyUsed(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 10)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	require.NoError(t, dc.Put("a", []byte("12345")))
	require.NoError(t, dc.Put("b", []byte("12345")))
	_, _ = dc.Get("a")
	require.NoError(t, dc.Put("c", []byte("12345")))

	assert.True(t, dc.Contains("a"))
	assert.False(t, dc.Contains("b"))
	assert.True(t, dc.Contains("c"))
	assert.Equal(t, int64(1), dc.Stats().Evictions)
}

func TestDiskCache_TooLarge(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 4)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	assert.ErrorIs(t, dc.Put("a", []byte("12345")), ErrItemTooLarge)
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	require.NoError(t, dc.Put("a", []byte("audio")))
	require.NoError(t, os.Remove(filepath.Join(dir, fileName("a"))))

	_, ok := dc.Get("a")
	assert.False(t, ok)
	assert.False(t, dc.Contains("a"))
}

func TestDiskCache_Clear(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20)
	require.NoError(t, err)
	defer dc.Close() //nolint:errcheck

	require.NoError(t, dc.Put("a", []byte("audio")))
	require.NoError(t, dc.Clear())
	assert.False(t, dc.Contains("a"))
	assert.Zero(t, dc.Stats().Size)
}
