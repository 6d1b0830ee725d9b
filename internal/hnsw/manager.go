package hnsw

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/storage"
)

// Kind distinguishes the two index slots the manager owns.
type Kind string

const (
	KindClip Kind = "clip"
	KindText Kind = "text"
)

// Manager owns at most one clip index and one text index at a time, each
// lazily resolved: a cached in-memory handle if one exists, otherwise a
// memory-mapped view of an on-disk file, otherwise a rebuild from the
// database, otherwise nothing.
type Manager struct {
	dir   string
	store *storage.Store

	mu     sync.Mutex
	cached map[Kind]*Index
}

// NewManager creates a Manager whose index files live under dir.
func NewManager(dir string, store *storage.Store) *Manager {
	return &Manager{
		dir:    dir,
		store:  store,
		cached: make(map[Kind]*Index),
	}
}

func (m *Manager) pathFor(kind Kind, modelName string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s-%s.usearch", kind, modelName))
}

// Get resolves the index for kind/modelName/dimensions, following
// get_clip_index's cache -> view -> rebuild -> none precedence. Returns
// ErrNotLoaded when the database has no vectors for this model yet.
func (m *Manager) Get(ctx context.Context, kind Kind, dimensions int, modelName string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.cached[kind]; ok {
		return idx, nil
	}

	path := m.pathFor(kind, modelName)
	stale, err := NeedsRebuild(ctx, m.store, dimensions, path, modelName)
	if err != nil {
		return nil, err
	}

	if !stale {
		idx, err := View(dimensions, path)
		if err != nil {
			return nil, fmt.Errorf("hnsw: view %s: %w", path, err)
		}
		m.cached[kind] = idx
		return idx, nil
	}

	count, err := m.store.CountClipVectors(ctx, modelName)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotLoaded
	}

	logging.Info("hnsw: rebuilding %s index for model %s", kind, modelName)
	rebuilder := &Rebuilder{Store: m.store}
	built, err := rebuilder.Rebuild(ctx, dimensions, modelName)
	if err != nil {
		return nil, fmt.Errorf("hnsw: rebuild %s/%s: %w", kind, modelName, err)
	}
	if err := built.Save(path); err != nil {
		built.Close()
		return nil, fmt.Errorf("hnsw: save rebuilt %s/%s: %w", kind, modelName, err)
	}
	built.Close()

	idx, err := View(dimensions, path)
	if err != nil {
		return nil, fmt.Errorf("hnsw: view rebuilt %s: %w", path, err)
	}
	m.cached[kind] = idx
	return idx, nil
}

// Invalidate drops the cached handle for kind so the next Get reconsiders
// whether a rebuild is needed. Triggered by the indexing scheduler after
// any run that produced new vectors, and by removal of a folder's data.
func (m *Manager) Invalidate(kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.cached[kind]; ok {
		idx.Close()
		delete(m.cached, kind)
	}
}

// InvalidateAll drops every cached handle.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for kind, idx := range m.cached {
		idx.Close()
		delete(m.cached, kind)
	}
}
