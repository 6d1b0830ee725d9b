package query

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/findit-engine/findit/internal/hnsw"
	"github.com/findit-engine/findit/internal/storage"
)

func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// fakeEmbeddingProvider returns the same fixed vec for every text, so
// ranking depends only on the seeded clips' own vectors.
type fakeEmbeddingProvider struct {
	dims      int
	available bool
	vec       []float32
}

func (f *fakeEmbeddingProvider) Name() string    { return "fake-text" }
func (f *fakeEmbeddingProvider) Dimensions() int { return f.dims }
func (f *fakeEmbeddingProvider) IsAvailable() bool {
	return f.available
}
func (f *fakeEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}
func (f *fakeEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeCLIPProvider struct {
	dims      int
	available bool
	vec       []float32
}

func (f *fakeCLIPProvider) Name() string    { return "fake-clip" }
func (f *fakeCLIPProvider) Dimensions() int { return f.dims }
func (f *fakeCLIPProvider) IsAvailable() bool {
	return f.available
}
func (f *fakeCLIPProvider) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}
func (f *fakeCLIPProvider) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	return f.vec, nil
}

func openGlobalStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "global.db")
	s, err := storage.Open(context.Background(), path, storage.KindGlobal)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type seedClip struct {
	sourceClipID int64
	description  string
	textVec      []float32
	clipVec      []float32
}

func seedGlobalClips(t *testing.T, s *storage.Store, folder string, clips []seedClip, textModel, clipModel string) {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	video := &storage.Video{
		SourceFolder: folder, SourceVideoID: 1,
		FilePath: folder + "/video.mp4", Size: 1, MTime: time.Now(), State: storage.VideoStateIndexed,
	}
	if err := s.UpsertVideo(ctx, tx, video); err != nil {
		t.Fatalf("upsert video: %v", err)
	}

	for _, sc := range clips {
		clip := &storage.Clip{
			SourceFolder: folder, SourceClipID: sc.sourceClipID,
			VideoID: video.VideoID, StartTime: float64(sc.sourceClipID),
			Description: sc.description,
		}
		if sc.textVec != nil {
			clip.Embedding = encodeVector(sc.textVec)
			clip.EmbeddingModel = textModel
			clip.EmbeddingDimensions = len(sc.textVec)
		}
		if err := s.UpsertClip(ctx, tx, clip); err != nil {
			t.Fatalf("upsert clip: %v", err)
		}
		if sc.clipVec != nil {
			if err := s.UpsertClipVector(ctx, tx, storage.ClipVector{
				ClipID: clip.ClipID, ModelName: clipModel, Vector: encodeVector(sc.clipVec),
			}); err != nil {
				t.Fatalf("upsert clip vector: %v", err)
			}
		}
	}
	if err := s.EndBatch(tx, nil); err != nil {
		t.Fatalf("end batch: %v", err)
	}
}

func TestSearchEngineFTSFindsMatchingClip(t *testing.T) {
	store := openGlobalStore(t)
	seedGlobalClips(t, store, "/folder", []seedClip{
		{sourceClipID: 1, description: "a dog running through a park"},
		{sourceClipID: 2, description: "a cat sleeping on a couch"},
	}, "text-model", "clip-model")

	engine := &SearchEngine{Store: store, Parser: QueryParser{}, Pipeline: QueryPipeline{}}

	results, err := engine.SearchFTS(context.Background(), "dog", Filter{})
	if err != nil {
		t.Fatalf("search fts: %v", err)
	}
	if len(results) != 1 || results[0].Description != "a dog running through a park" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchEngineFTSRespectsFolderFilter(t *testing.T) {
	store := openGlobalStore(t)
	seedGlobalClips(t, store, "/folder-a", []seedClip{
		{sourceClipID: 1, description: "a dog in the yard"},
	}, "text-model", "clip-model")
	seedGlobalClips(t, store, "/folder-b", []seedClip{
		{sourceClipID: 1, description: "a dog at the beach"},
	}, "text-model", "clip-model")

	engine := &SearchEngine{Store: store, Parser: QueryParser{}, Pipeline: QueryPipeline{}}

	results, err := engine.SearchFTS(context.Background(), "dog", Filter{FolderPaths: []string{"/folder-a"}})
	if err != nil {
		t.Fatalf("search fts: %v", err)
	}
	if len(results) != 1 || results[0].Description != "a dog in the yard" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchEngineHybridFusesAllThreeChannels(t *testing.T) {
	store := openGlobalStore(t)
	seedGlobalClips(t, store, "/folder", []seedClip{
		{sourceClipID: 1, description: "a dog running through a park", textVec: []float32{1, 0}, clipVec: []float32{1, 0}},
		{sourceClipID: 2, description: "a cat sleeping on a couch", textVec: []float32{0, 1}, clipVec: []float32{0, 1}},
	}, "text-model", "clip-model")

	dir := t.TempDir()
	engine := &SearchEngine{
		Store:             store,
		Parser:            QueryParser{},
		Pipeline:          QueryPipeline{},
		VectorManager:     hnsw.NewManager(dir, store),
		ClipModel:         "clip-model",
		ClipDimensions:    2,
		TextModel:         "text-model",
		TextDimensions:    2,
		EmbeddingProvider: &fakeEmbeddingProvider{dims: 2, available: true, vec: []float32{1, 0}},
		CLIPProvider:      &fakeCLIPProvider{dims: 2, available: true, vec: []float32{1, 0}},
	}

	results, err := engine.SearchHybrid(context.Background(), "dog park", Filter{})
	if err != nil {
		t.Fatalf("search hybrid: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one hybrid result")
	}
	if results[0].Description != "a dog running through a park" {
		t.Fatalf("expected the dog clip to rank first, got %+v", results[0])
	}
}

func TestSearchEngineHybridWorksWithoutProviders(t *testing.T) {
	store := openGlobalStore(t)
	seedGlobalClips(t, store, "/folder", []seedClip{
		{sourceClipID: 1, description: "a dog running through a park"},
	}, "text-model", "clip-model")

	dir := t.TempDir()
	engine := &SearchEngine{
		Store:         store,
		Parser:        QueryParser{},
		Pipeline:      QueryPipeline{},
		VectorManager: hnsw.NewManager(dir, store),
		ClipModel:     "clip-model",
		TextModel:     "text-model",
	}

	results, err := engine.SearchHybrid(context.Background(), "dog", Filter{})
	if err != nil {
		t.Fatalf("search hybrid: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected fts-only fallback to still find the clip, got %+v", results)
	}
}

func TestAllowedClipCacheInvalidatedBetweenSearches(t *testing.T) {
	store := openGlobalStore(t)
	seedGlobalClips(t, store, "/folder", []seedClip{
		{sourceClipID: 1, description: "a dog in the yard"},
	}, "text-model", "clip-model")

	engine := &SearchEngine{Store: store, Parser: QueryParser{}, Pipeline: QueryPipeline{}}
	filter := Filter{FolderPaths: []string{"/folder"}}

	if _, err := engine.resolveAllowed(context.Background(), filter); err != nil {
		t.Fatalf("resolve allowed: %v", err)
	}
	if _, ok := engine.allowedCache.Get(filter.FolderPaths, filter.PathPrefix); !ok {
		t.Fatal("expected the allowed-clip cache to be populated")
	}

	engine.InvalidateFilterCache()
	if _, ok := engine.allowedCache.Get(filter.FolderPaths, filter.PathPrefix); ok {
		t.Fatal("expected the allowed-clip cache to be cleared after InvalidateFilterCache")
	}
}
