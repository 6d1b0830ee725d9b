package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/findit-engine/findit/internal/logging"
	"github.com/findit-engine/findit/internal/metrics"
)

// defaultHTTPTimeout bounds a single cloud provider request; callers should
// also pass a context with their own deadline for cancellation.
const defaultHTTPTimeout = 30 * time.Second

// httpClient is shared across the cloud provider implementations so a
// single connection pool and timeout policy applies to all of them.
var httpClient = &http.Client{Timeout: defaultHTTPTimeout}

// postJSON posts body as JSON to url with apiKey as a bearer token, decodes
// the response into out, and records provider/capability metrics. It
// classifies non-2xx responses as ErrAPI and transport failures as
// ErrNetwork so callers can distinguish retryable from permanent failures.
func postJSON(ctx context.Context, provider, capability, url, apiKey string, body, out interface{}) error {
	requestID := uuid.New().String()
	start := time.Now()
	status := "success"
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues(provider, capability).Observe(time.Since(start).Seconds())
		metrics.ProviderRequestsTotal.WithLabelValues(provider, capability, status).Inc()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		status = "error"
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		status = "error"
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		status = "network_error"
		logging.Debug("%s/%s request %s: network error: %v", provider, capability, requestID, err)
		return ErrNetwork{Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		status = "network_error"
		logging.Debug("%s/%s request %s: read body: %v", provider, capability, requestID, err)
		return ErrNetwork{Detail: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "api_error"
		logging.Warn("%s/%s request %s: status %d", provider, capability, requestID, resp.StatusCode)
		return ErrAPI{Status: resp.StatusCode, Message: string(respBody), RequestID: requestID}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		status = "error"
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
