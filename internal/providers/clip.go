package providers

import (
	"context"
	"encoding/base64"
	"os"
)

// CloudCLIPEmbeddingProvider calls a hosted cross-modal embedding endpoint
// where text and image vectors live in the same comparable space.
type CloudCLIPEmbeddingProvider struct {
	name       string
	endpoint   string
	apiKey     string
	dimensions int
	limiter    RateLimiter
}

func NewCloudCLIPEmbeddingProvider(name, endpoint, apiKey string, dimensions int, limiter RateLimiter) *CloudCLIPEmbeddingProvider {
	return &CloudCLIPEmbeddingProvider{name: name, endpoint: endpoint, apiKey: apiKey, dimensions: dimensions, limiter: limiter}
}

func (p *CloudCLIPEmbeddingProvider) Name() string      { return p.name }
func (p *CloudCLIPEmbeddingProvider) Dimensions() int   { return p.dimensions }
func (p *CloudCLIPEmbeddingProvider) IsAvailable() bool { return p.apiKey != "" }

type clipRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"` // base64-encoded JPEG
}

type clipResponse struct {
	Vector []float32 `json:"vector"`
}

func (p *CloudCLIPEmbeddingProvider) encode(ctx context.Context, req clipRequest) ([]float32, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}
	var resp clipResponse
	if err := postJSON(ctx, p.name, "clip", p.endpoint, p.apiKey, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Vector) != p.dimensions {
		return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(resp.Vector)}
	}
	return resp.Vector, nil
}

func (p *CloudCLIPEmbeddingProvider) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return p.encode(ctx, clipRequest{Text: text})
}

func (p *CloudCLIPEmbeddingProvider) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	return p.encode(ctx, clipRequest{Image: base64.StdEncoding.EncodeToString(image)})
}

// OfflineCLIPEmbeddingProvider wraps a local CLIP-family model, available
// only once its weights are present on disk.
type OfflineCLIPEmbeddingProvider struct {
	name        string
	modelPath   string
	dimensions  int
	encodeText  func(text string) ([]float32, error)
	encodeImage func(image []byte) ([]float32, error)
}

func NewOfflineCLIPEmbeddingProvider(name, modelPath string, dimensions int, encodeText func(string) ([]float32, error), encodeImage func([]byte) ([]float32, error)) *OfflineCLIPEmbeddingProvider {
	return &OfflineCLIPEmbeddingProvider{name: name, modelPath: modelPath, dimensions: dimensions, encodeText: encodeText, encodeImage: encodeImage}
}

func (p *OfflineCLIPEmbeddingProvider) Name() string    { return p.name }
func (p *OfflineCLIPEmbeddingProvider) Dimensions() int { return p.dimensions }

func (p *OfflineCLIPEmbeddingProvider) IsAvailable() bool {
	if p.encodeText == nil || p.encodeImage == nil {
		return false
	}
	_, err := os.Stat(p.modelPath)
	return err == nil
}

func (p *OfflineCLIPEmbeddingProvider) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	v, err := p.encodeText(text)
	if err != nil {
		return nil, err
	}
	if len(v) != p.dimensions {
		return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(v)}
	}
	return v, nil
}

func (p *OfflineCLIPEmbeddingProvider) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	v, err := p.encodeImage(image)
	if err != nil {
		return nil, err
	}
	if len(v) != p.dimensions {
		return nil, ErrDimensionMismatch{Expected: p.dimensions, Got: len(v)}
	}
	return v, nil
}
