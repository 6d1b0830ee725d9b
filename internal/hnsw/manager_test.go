package hnsw

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/findit-engine/findit/internal/storage"
)

// encodeVector mirrors the pipeline's little-endian float32 BLOB layout
// without importing internal/pipeline (would be a cycle-free but
// unnecessary dependency for a single helper).
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folder.db")
	s, err := storage.Open(context.Background(), path, storage.KindFolder)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedClipVectors(t *testing.T, s *storage.Store, modelName string, vectors map[int64][]float32) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	video := &storage.Video{FilePath: "/vid.mp4", Size: 1, MTime: time.Now(), State: storage.VideoStatePending}
	if err := s.UpsertVideo(ctx, tx, video); err != nil {
		t.Fatalf("upsert video: %v", err)
	}

	for clipID, vec := range vectors {
		clip := &storage.Clip{VideoID: video.VideoID, StartTime: float64(clipID)}
		if err := s.UpsertClip(ctx, tx, clip); err != nil {
			t.Fatalf("upsert clip: %v", err)
		}
		if err := s.UpsertClipVector(ctx, tx, storage.ClipVector{
			ClipID: clip.ClipID, ModelName: modelName, Vector: encodeVector(vec),
		}); err != nil {
			t.Fatalf("upsert clip vector: %v", err)
		}
	}
	if err := s.EndBatch(tx, nil); err != nil {
		t.Fatalf("end batch: %v", err)
	}
}

func TestRebuilderRebuildsFromClipVectors(t *testing.T) {
	store := openTestStore(t)
	seedClipVectors(t, store, "clip-model", map[int64][]float32{
		1: {1, 0, 0},
		2: {0, 1, 0},
		3: {0, 0, 1},
	})

	rebuilder := &Rebuilder{Store: store}
	idx, err := rebuilder.Rebuild(context.Background(), 3, "clip-model")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer idx.Close()

	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 vectors, got %d", count)
	}
}

func TestManagerGetRebuildsThenCaches(t *testing.T) {
	store := openTestStore(t)
	seedClipVectors(t, store, "clip-model", map[int64][]float32{
		1: {1, 0},
		2: {0, 1},
	})

	dir := t.TempDir()
	mgr := NewManager(dir, store)

	idx1, err := mgr.Get(context.Background(), KindClip, 2, "clip-model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	idx2, err := mgr.Get(context.Background(), KindClip, 2, "clip-model")
	if err != nil {
		t.Fatalf("get (cached): %v", err)
	}
	if idx1 != idx2 {
		t.Fatal("expected second Get to return the cached handle")
	}
}

func TestManagerGetReturnsNotLoadedWithoutVectors(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	mgr := NewManager(dir, store)

	_, err := mgr.Get(context.Background(), KindText, 4, "missing-model")
	if err != ErrNotLoaded {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestManagerInvalidateDropsCache(t *testing.T) {
	store := openTestStore(t)
	seedClipVectors(t, store, "m", map[int64][]float32{1: {1, 0}})

	dir := t.TempDir()
	mgr := NewManager(dir, store)

	if _, err := mgr.Get(context.Background(), KindClip, 2, "m"); err != nil {
		t.Fatalf("get: %v", err)
	}
	mgr.Invalidate(KindClip)

	if _, ok := mgr.cached[KindClip]; ok {
		t.Fatal("expected cache entry to be dropped after Invalidate")
	}
}

func TestIndexReadOnlyViewRejectsMutation(t *testing.T) {
	idx, err := NewIndex(2)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if err := idx.Add(1, []float32{1, 0}); err != nil {
		t.Fatalf("add: %v", err)
	}

	path := filepath.Join(t.TempDir(), "idx.usearch")
	if err := idx.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	idx.Close()

	view, err := View(2, path)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	defer view.Close()

	if err := view.Add(2, []float32{0, 1}); err != ErrReadOnly {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := view.Remove(1); err != ErrReadOnly {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}
