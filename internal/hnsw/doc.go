// Package hnsw wraps github.com/unum-cloud/usearch for the engine's two
// approximate-nearest-neighbor indexes (one over CLIP/vision embeddings,
// one over dense text embeddings). It provides the on-disk persisted,
// auto-growing index (Index), a batch rebuild path from the clip_vectors
// table (Rebuilder), and a lazy per-model cache with a read-only
// memory-mapped fast path (Manager).
//
// No pack repo imports an HNSW library; the on-disk format, growth policy,
// and atomic-save-then-rename discipline are grounded on spec.md §4.11's
// own description plus this codebase's established atomic-write idiom
// (internal/pipeline/segmenter.go's tmp-file-then-os.Rename thumbnails).
package hnsw
