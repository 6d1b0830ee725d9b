// Package pipeline implements the per-video indexing pipeline: fingerprint,
// content hash, segmentation, captioning, transcription, embedding, and a
// final sync into the global database.
//
// ProcessVideo runs the stages in order and stops early wherever a skip
// predicate applies, so it is safe to call repeatedly on an already-indexed
// video. It is grounded on djryanj-media-viewer's internal/indexer.go
// (size+mtime fingerprint, batch-skip idempotence) and internal/transcoder.go
// (exec.CommandContext subprocess invocation, stderr capture, context
// cancellation) for the external segmenter boundary.
package pipeline
