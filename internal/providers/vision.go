package providers

import (
	"context"
	"encoding/base64"
	"os"
)

// CloudVisionCaptionProvider calls a hosted vision-language endpoint with
// batches of JPEG frames and decodes its structured caption response.
type CloudVisionCaptionProvider struct {
	name         string
	endpoint     string
	apiKey       string
	maxBatchSize int
	limiter      RateLimiter
}

func NewCloudVisionCaptionProvider(name, endpoint, apiKey string, maxBatchSize int, limiter RateLimiter) *CloudVisionCaptionProvider {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	return &CloudVisionCaptionProvider{name: name, endpoint: endpoint, apiKey: apiKey, maxBatchSize: maxBatchSize, limiter: limiter}
}

func (p *CloudVisionCaptionProvider) Name() string      { return p.name }
func (p *CloudVisionCaptionProvider) IsAvailable() bool { return p.apiKey != "" }
func (p *CloudVisionCaptionProvider) MaxBatchSize() int { return p.maxBatchSize }

type visionRequest struct {
	Images []string `json:"images"` // base64-encoded JPEG frames
}

type visionCaptionWire struct {
	Scene       string   `json:"scene"`
	Subjects    []string `json:"subjects"`
	Actions     []string `json:"actions"`
	Objects     []string `json:"objects"`
	Mood        string   `json:"mood"`
	ShotType    string   `json:"shotType"`
	Lighting    string   `json:"lighting"`
	Colors      []string `json:"colors"`
	Description string   `json:"description"`
}

type visionResponse struct {
	Captions []visionCaptionWire `json:"captions"`
}

func (p *CloudVisionCaptionProvider) Caption(ctx context.Context, frames [][]byte) ([]VisionCaption, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	var out []VisionCaption
	for start := 0; start < len(frames); start += p.maxBatchSize {
		end := start + p.maxBatchSize
		if end > len(frames) {
			end = len(frames)
		}
		batch := frames[start:end]

		images := make([]string, len(batch))
		for i, f := range batch {
			images[i] = base64.StdEncoding.EncodeToString(f)
		}

		var resp visionResponse
		if err := postJSON(ctx, p.name, "caption", p.endpoint, p.apiKey, visionRequest{Images: images}, &resp); err != nil {
			return nil, err
		}
		for _, c := range resp.Captions {
			out = append(out, VisionCaption{
				Scene: c.Scene, Subjects: c.Subjects, Actions: c.Actions, Objects: c.Objects,
				Mood: c.Mood, ShotType: c.ShotType, Lighting: c.Lighting, Colors: c.Colors,
				Description: c.Description,
			})
		}
	}
	return out, nil
}

// OfflineVisionCaptionProvider wraps a local vision-language model,
// available only once its weights are present on disk.
type OfflineVisionCaptionProvider struct {
	name         string
	modelPath    string
	maxBatchSize int
	captionFunc  func(frame []byte) (VisionCaption, error)
}

func NewOfflineVisionCaptionProvider(name, modelPath string, maxBatchSize int, captionFunc func(frame []byte) (VisionCaption, error)) *OfflineVisionCaptionProvider {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	return &OfflineVisionCaptionProvider{name: name, modelPath: modelPath, maxBatchSize: maxBatchSize, captionFunc: captionFunc}
}

func (p *OfflineVisionCaptionProvider) Name() string      { return p.name }
func (p *OfflineVisionCaptionProvider) MaxBatchSize() int { return p.maxBatchSize }

func (p *OfflineVisionCaptionProvider) IsAvailable() bool {
	if p.captionFunc == nil {
		return false
	}
	_, err := os.Stat(p.modelPath)
	return err == nil
}

func (p *OfflineVisionCaptionProvider) Caption(ctx context.Context, frames [][]byte) ([]VisionCaption, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderNotAvailable{Provider: p.name}
	}
	out := make([]VisionCaption, 0, len(frames))
	for _, f := range frames {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}
		c, err := p.captionFunc(f)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}
