package providers

import (
	"context"
	"os"
)

// CloudEmbeddingProvider calls a hosted text-embedding endpoint,
// rate-limited by the caller-supplied RateLimiter.
type CloudEmbeddingProvider struct {
	name       string
	endpoint   string
	apiKey     string
	dimensions int
	limiter    RateLimiter
}

// NewCloudEmbeddingProvider creates a cloud embedding provider. It is
// available whenever an API key is configured.
func NewCloudEmbeddingProvider(name, endpoint, apiKey string, dimensions int, limiter RateLimiter) *CloudEmbeddingProvider {
	return &CloudEmbeddingProvider{name: name, endpoint: endpoint, apiKey: apiKey, dimensions: dimensions, limiter: limiter}
}

func (p *CloudEmbeddingProvider) Name() string      { return p.name }
func (p *CloudEmbeddingProvider) Dimensions() int   { return p.dimensions }
func (p *CloudEmbeddingProvider) IsAvailable() bool { return p.apiKey != "" }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

func (p *CloudEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *CloudEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	var resp embeddingResponse
	req := embeddingRequest{Model: p.name, Input: texts}
	if err := postJSON(ctx, p.name, "embed", p.endpoint, p.apiKey, req, &resp); err != nil {
		return nil, err
	}
	for _, v := range resp.Vectors {
		if len(v) != p.dimensions {
			return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(v)}
		}
	}
	return resp.Vectors, nil
}

// OfflineEmbeddingProvider wraps a local embedding model. It reports itself
// available only when the model file it was configured with exists on
// disk, so the pipeline can fall back to skipping the stage cleanly rather
// than failing when the model hasn't been downloaded.
type OfflineEmbeddingProvider struct {
	name       string
	modelPath  string
	dimensions int
	embedFunc  func(text string) ([]float32, error)
}

// NewOfflineEmbeddingProvider creates an offline provider. embedFunc
// performs the actual local-model inference; it is injected so this
// package has no hard dependency on a specific inference runtime.
func NewOfflineEmbeddingProvider(name, modelPath string, dimensions int, embedFunc func(text string) ([]float32, error)) *OfflineEmbeddingProvider {
	return &OfflineEmbeddingProvider{name: name, modelPath: modelPath, dimensions: dimensions, embedFunc: embedFunc}
}

func (p *OfflineEmbeddingProvider) Name() string    { return p.name }
func (p *OfflineEmbeddingProvider) Dimensions() int { return p.dimensions }

func (p *OfflineEmbeddingProvider) IsAvailable() bool {
	if p.embedFunc == nil {
		return false
	}
	_, err := os.Stat(p.modelPath)
	return err == nil
}

func (p *OfflineEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	v, err := p.embedFunc(text)
	if err != nil {
		return nil, err
	}
	if len(v) != p.dimensions {
		return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(v)}
	}
	return v, nil
}

func (p *OfflineEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
