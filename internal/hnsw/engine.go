package hnsw

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	usearch "github.com/unum-cloud/usearch/golang"
)

const (
	initialReserve = 1024
	growthFactor   = 2
)

// Key is the signed clip_id reinterpreted as the unsigned key usearch
// indexes natively. Clip IDs are SQLite-assigned positive rowids, so the
// reinterpretation never collides in practice.
type Key = uint64

// Index is the disk-backed cosine HNSW index for one embedding model. It
// auto-grows its reserved capacity (starting at 1024, doubling) so batch
// adds rarely need more than one reservation per rebuild.
type Index struct {
	dimensions int

	mu       sync.RWMutex
	idx      *usearch.Index
	readOnly bool
	path     string
}

func newConfig(dimensions int) usearch.IndexConfig {
	conf := usearch.DefaultConfig(uint(dimensions))
	conf.Metric = usearch.Cos
	return conf
}

// NewIndex creates a fresh, empty, writable index for dimensions-wide
// vectors.
func NewIndex(dimensions int) (*Index, error) {
	idx, err := usearch.NewIndex(newConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("hnsw: create index: %w", err)
	}
	if err := idx.Reserve(initialReserve); err != nil {
		return nil, fmt.Errorf("hnsw: reserve initial capacity: %w", err)
	}
	return &Index{dimensions: dimensions, idx: idx}, nil
}

// Load reads path into a writable in-memory index.
func Load(dimensions int, path string) (*Index, error) {
	idx, err := usearch.NewIndex(newConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("hnsw: create index: %w", err)
	}
	if err := idx.Load(path); err != nil {
		return nil, fmt.Errorf("hnsw: load %s: %w", path, err)
	}
	return &Index{dimensions: dimensions, idx: idx, path: path}, nil
}

// View attaches path memory-mapped and read-only. Any Add/AddBatch/Remove
// on the result fails with ErrReadOnly.
func View(dimensions int, path string) (*Index, error) {
	idx, err := usearch.NewIndex(newConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("hnsw: create index: %w", err)
	}
	if err := idx.View(path); err != nil {
		return nil, fmt.Errorf("hnsw: view %s: %w", path, err)
	}
	return &Index{dimensions: dimensions, idx: idx, readOnly: true, path: path}, nil
}

// Count returns how many keys the index currently holds.
func (i *Index) Count() (uint, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.Len()
}

// Contains reports whether key is present in the index.
func (i *Index) Contains(key Key) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.Contains(key)
}

// Add inserts one vector, growing reserved capacity first if needed.
func (i *Index) Add(key Key, vector []float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.readOnly {
		return ErrReadOnly
	}
	if err := i.ensureCapacityLocked(1); err != nil {
		return err
	}
	return i.idx.Add(key, vector)
}

// AddBatch inserts many (key, vector) pairs under a single capacity check.
func (i *Index) AddBatch(keys []Key, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("hnsw: keys/vectors length mismatch: %d vs %d", len(keys), len(vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.readOnly {
		return ErrReadOnly
	}
	if err := i.ensureCapacityLocked(uint(len(keys))); err != nil {
		return err
	}
	for n, key := range keys {
		if err := i.idx.Add(key, vectors[n]); err != nil {
			return fmt.Errorf("hnsw: add key %d: %w", key, err)
		}
	}
	return nil
}

// ensureCapacityLocked grows reserved capacity to at least count+extra,
// doubling from 1024 each time, per the auto-grow policy.
func (i *Index) ensureCapacityLocked(extra uint) error {
	count, err := i.idx.Len()
	if err != nil {
		return fmt.Errorf("hnsw: len: %w", err)
	}
	need := count + extra

	reserved := initialReserve
	for uint(reserved) < need {
		reserved *= growthFactor
	}
	if uint(reserved) <= count {
		return nil
	}
	return i.idx.Reserve(uint(reserved))
}

// Remove deletes key, if present.
func (i *Index) Remove(key Key) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.readOnly {
		return ErrReadOnly
	}
	return i.idx.Remove(key)
}

// Search returns up to limit nearest keys (by cosine distance) to query.
func (i *Index) Search(query []float32, limit int) ([]Key, []float32, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	keys, distances, err := i.idx.Search(query, limit)
	if err != nil {
		return nil, nil, err
	}
	return keys, distances, nil
}

// Save atomically writes the index to path: it writes to a temporary file
// in the same directory, then renames over the target so a reader never
// observes a half-written index.
func (i *Index) Save(path string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("hnsw: mkdir for %s: %w", path, err)
	}
	if err := i.idx.Save(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("hnsw: save to %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("hnsw: rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// Close releases the underlying native index resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Destroy()
}
