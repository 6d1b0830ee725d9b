package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/findit-engine/findit/internal/providers"
)

// Direction is which way a translation should run.
type Direction string

const (
	DirNone         Direction = "none"
	DirCJKToEnglish Direction = "cjk_to_en"
	DirEnglishToCJK Direction = "en_to_cjk"
)

// Translator turns text from one language into another.
type Translator interface {
	Translate(ctx context.Context, text string, dir Direction) (string, error)
	IsAvailable() bool
}

// DictionaryTranslator translates word-by-word (CJK tokens produced by
// segmentCJK, English tokens by whitespace) using a small built-in
// dictionary. It is always available and is the guaranteed fallback when
// no neural translator is configured or it fails.
type DictionaryTranslator struct {
	enToCJK map[string]string
	cjkToEn map[string]string
}

// NewDictionaryTranslator builds a translator from an en->cjk mapping; the
// reverse mapping is derived automatically.
func NewDictionaryTranslator(enToCJK map[string]string) *DictionaryTranslator {
	cjkToEn := make(map[string]string, len(enToCJK))
	for en, cjk := range enToCJK {
		cjkToEn[cjk] = en
	}
	return &DictionaryTranslator{enToCJK: enToCJK, cjkToEn: cjkToEn}
}

func (d *DictionaryTranslator) IsAvailable() bool { return true }

func (d *DictionaryTranslator) Translate(_ context.Context, text string, dir Direction) (string, error) {
	switch dir {
	case DirEnglishToCJK:
		return d.translateWords(strings.Fields(text), d.enToCJK), nil
	case DirCJKToEnglish:
		return d.translateWords(segmentCJK(text), d.cjkToEn), nil
	default:
		return text, nil
	}
}

func (d *DictionaryTranslator) translateWords(words []string, dict map[string]string) string {
	out := make([]string, len(words))
	for i, w := range words {
		if t, ok := dict[strings.ToLower(w)]; ok {
			out[i] = t
		} else {
			out[i] = w
		}
	}
	return strings.Join(out, " ")
}

// NeuralTranslator calls a hosted translation endpoint, rate-limited by
// the caller-supplied limiter. It mirrors internal/providers' cloud
// provider shape (endpoint + API key + RateLimiter, available only when
// an API key is configured) so query expansion's "try a neural
// translator, fall back to dictionary" path has a concrete, swappable
// implementation without hard cloud-SDK lock-in.
type NeuralTranslator struct {
	endpoint string
	apiKey   string
	limiter  providers.RateLimiter
	client   *http.Client
}

// NewNeuralTranslator creates a cloud translator. It reports itself
// unavailable when apiKey is empty, so QueryPipeline falls back to the
// dictionary without attempting a request.
func NewNeuralTranslator(endpoint, apiKey string, limiter providers.RateLimiter) *NeuralTranslator {
	return &NeuralTranslator{
		endpoint: endpoint,
		apiKey:   apiKey,
		limiter:  limiter,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NeuralTranslator) IsAvailable() bool { return n.apiKey != "" }

type translateRequest struct {
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

type translateResponse struct {
	Translated string `json:"translated"`
}

func (n *NeuralTranslator) Translate(ctx context.Context, text string, dir Direction) (string, error) {
	if !n.IsAvailable() {
		return "", providers.ErrProviderNotAvailable{Provider: "neural-translator"}
	}
	if n.limiter != nil {
		if err := n.limiter.Acquire(ctx); err != nil {
			return "", err
		}
	}

	payload, err := json.Marshal(translateRequest{Text: text, Direction: string(dir)})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate request: unexpected status %d", resp.StatusCode)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	return out.Translated, nil
}
