package providers

import (
	"context"
	"encoding/base64"
	"os"
)

// CloudSTTProvider calls a hosted speech-to-text endpoint.
type CloudSTTProvider struct {
	name     string
	endpoint string
	apiKey   string
	limiter  RateLimiter
}

func NewCloudSTTProvider(name, endpoint, apiKey string, limiter RateLimiter) *CloudSTTProvider {
	return &CloudSTTProvider{name: name, endpoint: endpoint, apiKey: apiKey, limiter: limiter}
}

func (p *CloudSTTProvider) Name() string      { return p.name }
func (p *CloudSTTProvider) IsAvailable() bool { return p.apiKey != "" }

type sttRequest struct {
	Audio string `json:"audio"` // base64-encoded audio track
}

type sttResponse struct {
	NoAudio bool   `json:"noAudio"`
	Text    string `json:"text"`
	SRT     string `json:"srt"`
}

func (p *CloudSTTProvider) Transcribe(ctx context.Context, audio []byte) (TranscriptionResult, error) {
	if !p.IsAvailable() {
		return TranscriptionResult{}, ErrProviderNotAvailable{Provider: p.name}
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return TranscriptionResult{}, err
		}
	}

	var resp sttResponse
	req := sttRequest{Audio: base64.StdEncoding.EncodeToString(audio)}
	if err := postJSON(ctx, p.name, "transcribe", p.endpoint, p.apiKey, req, &resp); err != nil {
		return TranscriptionResult{}, err
	}
	if resp.NoAudio {
		return TranscriptionResult{}, ErrNoAudio{}
	}
	return TranscriptionResult{Text: resp.Text, SRT: resp.SRT}, nil
}

// OfflineSTTProvider wraps a local speech-recognition model, available
// only once its weights are present on disk.
type OfflineSTTProvider struct {
	name           string
	modelPath      string
	transcribeFunc func(audio []byte) (TranscriptionResult, error)
}

func NewOfflineSTTProvider(name, modelPath string, transcribeFunc func([]byte) (TranscriptionResult, error)) *OfflineSTTProvider {
	return &OfflineSTTProvider{name: name, modelPath: modelPath, transcribeFunc: transcribeFunc}
}

func (p *OfflineSTTProvider) Name() string { return p.name }

func (p *OfflineSTTProvider) IsAvailable() bool {
	if p.transcribeFunc == nil {
		return false
	}
	_, err := os.Stat(p.modelPath)
	return err == nil
}

func (p *OfflineSTTProvider) Transcribe(ctx context.Context, audio []byte) (TranscriptionResult, error) {
	if !p.IsAvailable() {
		return TranscriptionResult{}, ErrProviderNotAvailable{Provider: p.name}
	}
	return p.transcribeFunc(audio)
}
