package providers

import "fmt"

// ErrProviderNotAvailable means the provider has no usable backend right
// now (no API key configured, offline model files missing). The pipeline
// treats this as a skip, not a failure.
type ErrProviderNotAvailable struct {
	Provider string
}

func (e ErrProviderNotAvailable) Error() string {
	return fmt.Sprintf("provider %s: not available", e.Provider)
}

// ErrDimensionMismatch means a provider returned a vector of a different
// size than it advertised, or than what's already stored for a clip.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// ErrAPI means the remote endpoint responded with a non-success status.
// RequestID is the client-generated id sent on the request, included here so
// it can be handed to the operator for correlation against provider-side logs.
type ErrAPI struct {
	Status    int
	Message   string
	RequestID string
}

func (e ErrAPI) Error() string {
	return fmt.Sprintf("api error (status %d, request %s): %s", e.Status, e.RequestID, e.Message)
}

// ErrNetwork wraps a transport-level failure (timeout, connection reset)
// talking to a cloud provider.
type ErrNetwork struct {
	Detail string
}

func (e ErrNetwork) Error() string {
	return fmt.Sprintf("network error: %s", e.Detail)
}

// ErrNoAudio distinguishes "this video has no audio track" from a genuine
// transcription Failure in STTProvider.Transcribe.
type ErrNoAudio struct{}

func (ErrNoAudio) Error() string { return "no audio track" }
