package providers

import "context"

// EmbeddingProvider turns text into a fixed-dimension vector.
type EmbeddingProvider interface {
	Name() string
	Dimensions() int
	IsAvailable() bool
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VisionCaption is the structured output of a vision captioning call on one
// clip's representative frame(s).
type VisionCaption struct {
	Scene       string
	Subjects    []string
	Actions     []string
	Objects     []string
	Mood        string
	ShotType    string
	Lighting    string
	Colors      []string
	Description string
}

// VisionCaptionProvider captions clip frames into structured metadata,
// batching up to N images per request where the backend supports it.
type VisionCaptionProvider interface {
	Name() string
	IsAvailable() bool
	MaxBatchSize() int
	Caption(ctx context.Context, frames [][]byte) ([]VisionCaption, error)
}

// CLIPEmbeddingProvider maps text and images into the same vector space so
// cosine similarity is meaningful across modalities.
type CLIPEmbeddingProvider interface {
	Name() string
	Dimensions() int
	IsAvailable() bool
	EncodeText(ctx context.Context, text string) ([]float32, error)
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
}

// TranscriptionResult is the output of an STTProvider call.
type TranscriptionResult struct {
	Text string
	SRT  string
}

// STTProvider transcribes a clip's audio track. Transcribe returns
// ErrNoAudio (not a generic error) when the input carries no audio, so
// callers can report stt_skipped_no_audio rather than a pipeline failure.
type STTProvider interface {
	Name() string
	IsAvailable() bool
	Transcribe(ctx context.Context, audio []byte) (TranscriptionResult, error)
}

// RateLimiter suspends the caller until a token is available, bounding
// request rate to a configured provider's RPM limit.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}
