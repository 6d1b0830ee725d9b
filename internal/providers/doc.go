// Package providers defines the capability interfaces the indexing pipeline
// consumes rather than concrete backends: embeddings, vision captioning,
// cross-modal (CLIP-like) embedding, speech-to-text, and rate limiting.
// Each capability ships a cloud HTTP-backed implementation and an offline
// implementation that reports itself unavailable when its local model files
// aren't present, so the pipeline degrades rather than fails when run
// without network access or API keys.
package providers
