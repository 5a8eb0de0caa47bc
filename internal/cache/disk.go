package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexFile = "index.gob"

	// Payloads smaller than this aren't worth compressing.
	compressThreshold = 1024
)

// DiskCache persists synthesized audio between runs so repeated workouts
// skip the synthesis engine entirely. Files are named by a hash of the key
// and compressed with zstd when that saves space. The least recently used
// entries are evicted once capacity is reached.
type DiskCache struct {
	dir      string
	capacity int64

	mu    sync.Mutex
	index map[string]*diskEntry
	size  int64
	stats Stats

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// diskEntry is persisted in the gob index, so its fields are exported.
type diskEntry struct {
	File       string
	Size       int64
	Compressed bool
	LastAccess time.Time
}

// NewDiskCache opens (or creates) a cache rooted at dir. capacity is in bytes.
func NewDiskCache(dir string, capacity int64) (*DiskCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("disk cache capacity must be positive, got %d", capacity)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		encoder:  enc,
		decoder:  dec,
	}
	if err := dc.loadIndex(); err != nil {
		// A corrupt index only costs us the previous run's entries.
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}
	return dc, nil
}

// Get reads and decompresses the value for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(dc.dir, entry.File))
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err != nil {
		dc.dropLocked(key)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes value for key, evicting old entries as needed.
func (dc *DiskCache) Put(key string, value []byte) error {
	if len(value) == 0 {
		return ErrEmptyValue
	}

	data, compressed := value, false
	if len(value) > compressThreshold {
		if enc := dc.encoder.EncodeAll(value, nil); len(enc) < len(value) {
			data, compressed = enc, true
		}
	}
	if int64(len(data)) > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if _, ok := dc.index[key]; ok {
		dc.dropLocked(key)
	}
	for dc.size+int64(len(data)) > dc.capacity && len(dc.index) > 0 {
		dc.evictLocked()
	}

	name := fileName(key)
	if err := writeAtomic(filepath.Join(dc.dir, name), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	dc.index[key] = &diskEntry{
		File:       name,
		Size:       int64(len(data)),
		Compressed: compressed,
		LastAccess: time.Now(),
	}
	dc.size += int64(len(data))
	return nil
}

// Contains reports whether key is indexed.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Clear removes every cached file.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.dropLocked(key)
	}
	return dc.saveIndexLocked()
}

// Stats returns a snapshot of the cache counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Capacity = dc.capacity
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	stats.computeHitRate()
	return stats
}

// Close persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.decoder.Close()
	return dc.saveIndexLocked()
}

func (dc *DiskCache) dropLocked(key string) {
	entry, ok := dc.index[key]
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(dc.dir, entry.File))
	dc.size -= entry.Size
	delete(dc.index, key)
}

func (dc *DiskCache) evictLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, e := range dc.index {
		if oldestKey == "" || e.LastAccess.Before(oldest) {
			oldestKey, oldest = key, e.LastAccess
		}
	}
	if oldestKey != "" {
		dc.dropLocked(oldestKey)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if err := gob.NewDecoder(f).Decode(&dc.index); err != nil {
		return fmt.Errorf("%w: %v", errCorruptIndex, err)
	}
	return nil
}

func (dc *DiskCache) saveIndexLocked() error {
	f, err := os.CreateTemp(dc.dir, indexFile+".*")
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(dc.index); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), filepath.Join(dc.dir, indexFile))
}

var errCorruptIndex = errors.New("cache index corrupted")

func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16]) + ".pcm"
}

// writeAtomic writes to a temp file and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
