package hnsw

import (
	"context"
	"fmt"
	"os"

	"github.com/findit-engine/findit/internal/storage"
	"github.com/findit-engine/findit/internal/vectorstore"
)

const rebuildBatchSize = 5000

// ClipIDToKey reinterprets a clip's signed rowid as the unsigned key
// usearch indexes with. Clip IDs are always positive SQLite rowids, so
// this is a direct widening conversion in practice.
func ClipIDToKey(clipID int64) Key { return Key(clipID) }

// KeyToClipID reverses ClipIDToKey for hydrating search results.
func KeyToClipID(key Key) int64 { return int64(key) }

// Rebuilder rebuilds a model's HNSW index from its clip_vectors rows.
type Rebuilder struct {
	Store *storage.Store
}

// Rebuild reads every clip_vectors row for modelName in batches of
// rebuildBatchSize, preallocating from the row count, and adds each
// decoded vector under its reinterpreted clip key. The returned index is
// writable; callers that only need to search it should Save then re-open
// with View.
func (r *Rebuilder) Rebuild(ctx context.Context, dimensions int, modelName string) (*Index, error) {
	count, err := r.Store.CountClipVectors(ctx, modelName)
	if err != nil {
		return nil, fmt.Errorf("hnsw: count clip_vectors for %s: %w", modelName, err)
	}

	idx, err := NewIndex(dimensions)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		if err := idx.ensureCapacityForRebuild(uint(count)); err != nil {
			idx.Close()
			return nil, err
		}
	}

	for offset := int64(0); offset < count; offset += rebuildBatchSize {
		if ctx.Err() != nil {
			idx.Close()
			return nil, ctx.Err()
		}
		rows, err := r.Store.ListClipVectorsPage(ctx, modelName, rebuildBatchSize, int(offset))
		if err != nil {
			idx.Close()
			return nil, fmt.Errorf("hnsw: page clip_vectors at offset %d: %w", offset, err)
		}

		keys := make([]Key, 0, len(rows))
		vectors := make([][]float32, 0, len(rows))
		for _, row := range rows {
			vec := vectorstore.DecodeVector(row.Vector)
			if len(vec) != dimensions {
				continue
			}
			keys = append(keys, ClipIDToKey(row.ClipID))
			vectors = append(vectors, vec)
		}
		if len(keys) == 0 {
			continue
		}
		if err := idx.AddBatch(keys, vectors); err != nil {
			idx.Close()
			return nil, fmt.Errorf("hnsw: add batch at offset %d: %w", offset, err)
		}
	}

	return idx, nil
}

// ensureCapacityForRebuild lets Rebuild reserve up front for the whole
// known row count rather than growing incrementally batch by batch.
func (i *Index) ensureCapacityForRebuild(rows uint) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ensureCapacityLocked(rows)
}

// NeedsRebuild reports whether the on-disk index at path is missing or
// stale relative to the database's current row count for modelName.
func NeedsRebuild(ctx context.Context, store *storage.Store, dimensions int, path, modelName string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("hnsw: stat %s: %w", path, err)
	}

	dbCount, err := store.CountClipVectors(ctx, modelName)
	if err != nil {
		return false, err
	}

	onDiskCount, err := countOnDisk(dimensions, path)
	if err != nil {
		// An unreadable index file on disk is as good as absent: rebuild it.
		return true, nil
	}
	return onDiskCount != dbCount, nil
}

// countOnDisk opens path as a read-only view just long enough to read its
// key count.
func countOnDisk(dimensions int, path string) (int64, error) {
	idx, err := View(dimensions, path)
	if err != nil {
		return 0, err
	}
	defer idx.Close()
	count, err := idx.Count()
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}
